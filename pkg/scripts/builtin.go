package scripts

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/screengrid-dev/screengrid/pkg/core"
	"github.com/screengrid-dev/screengrid/pkg/logger"
	"github.com/screengrid-dev/screengrid/pkg/resolver"
)

// ScreenshotScript captures the screen and returns it base64-encoded.
func ScreenshotScript(ctx *Context) *Result {
	data, err := ctx.Device.Screenshot(ctx.Ctx)
	if err != nil {
		return NewErrorResult("screenshot failed", err)
	}
	return NewSuccessResult("screenshot captured", map[string]interface{}{
		"screenshot": base64.StdEncoding.EncodeToString(data),
		"size_bytes": len(data),
	})
}

// GetUITextScript extracts all text elements from the UI hierarchy.
func GetUITextScript(ctx *Context) *Result {
	elements, err := ctx.Device.UIText(ctx.Ctx)
	if err != nil {
		return NewErrorResult("UI text extraction failed", err)
	}
	return NewSuccessResult(fmt.Sprintf("extracted %d UI text elements", len(elements)), map[string]interface{}{
		"elements":    elements,
		"total_found": len(elements),
	})
}

// GetOCRTextScript runs OCR over a fresh screenshot.
// Variables: languages ("eng+chi_sim"), engine (default engine when empty).
func GetOCRTextScript(ctx *Context) *Result {
	image, err := ctx.Device.Screenshot(ctx.Ctx)
	if err != nil {
		return NewErrorResult("screenshot failed", err)
	}

	detection, err := ctx.OCR.Recognize(ctx.Ctx, image, languagesVariable(ctx), ctx.GetString("engine", ""))
	if err != nil {
		return NewErrorResult("OCR failed", err)
	}

	return NewSuccessResult(fmt.Sprintf("OCR found %d text elements", len(detection.Elements)), map[string]interface{}{
		"elements":       detection.Elements,
		"total_found":    len(detection.Elements),
		"engine_used":    detection.EngineUsed,
		"languages_used": strings.Join(detection.LanguagesUsed, "+"),
	})
}

// FindAndClickEnhancedScript locates text via the UI tree, falling back to
// OCR, and taps the match.
// Variables: text (required), ocr_fallback (default true), required
// (default true), languages, engine.
func FindAndClickEnhancedScript(ctx *Context) *Result {
	return findAndClick(ctx, ctx.GetBool("ocr_fallback", true))
}

// FindAndClickScript is the UI-only variant of find_and_click_enhanced.
func FindAndClickScript(ctx *Context) *Result {
	return findAndClick(ctx, false)
}

func findAndClick(ctx *Context, ocrFallback bool) *Result {
	return tapText(ctx, ctx.GetString("text", ""), ocrFallback, ctx.GetBool("required", true))
}

// tapText locates text on screen and taps it. A miss is only a failure
// when the tap is required; otherwise it completes with found=false.
func tapText(ctx *Context, text string, ocrFallback, required bool) *Result {
	match, err := locateText(ctx, text, ocrFallback)
	if err != nil {
		return NewErrorResult("text detection failed", err)
	}

	if !match.Found {
		if required {
			return &Result{
				Success: false,
				Message: fmt.Sprintf("text %q not found on screen", text),
				Data:    matchData(match),
				Error:   "text not found",
			}
		}
		return NewSuccessResult(fmt.Sprintf("text %q not found, skipping tap", text), matchData(match))
	}

	if err := ctx.Device.Tap(ctx.Ctx, match.Target.X, match.Target.Y); err != nil {
		return NewErrorResult(fmt.Sprintf("tap at (%d,%d) failed", match.Target.X, match.Target.Y), err)
	}

	logger.Debug("tapped %q at (%d,%d) via %s", text, match.Target.X, match.Target.Y, match.DetectionMethod)
	return NewSuccessResult(fmt.Sprintf("tapped %q via %s", text, match.DetectionMethod), matchData(match))
}

// CheckTextEnhancedScript reports whether text is on screen, UI tree first
// then OCR. Not finding the text is a successful check with found=false.
func CheckTextEnhancedScript(ctx *Context) *Result {
	return checkText(ctx, ctx.GetBool("ocr_fallback", true))
}

// CheckTextScript is the UI-only variant of check_text_enhanced.
func CheckTextScript(ctx *Context) *Result {
	return checkText(ctx, false)
}

func checkText(ctx *Context, ocrFallback bool) *Result {
	text := ctx.GetString("text", "")

	match, err := locateText(ctx, text, ocrFallback)
	if err != nil {
		return NewErrorResult("text detection failed", err)
	}

	if match.Found {
		return NewSuccessResult(fmt.Sprintf("text %q found via %s", text, match.DetectionMethod), matchData(match))
	}
	return NewSuccessResult(fmt.Sprintf("text %q not found", text), matchData(match))
}

// locateText runs the UI pass and, when permitted, a lazy OCR pass over a
// fresh screenshot. The screenshot is only taken when the UI misses.
func locateText(ctx *Context, text string, ocrFallback bool) (*core.MatchResult, error) {
	uiElements, err := ctx.Device.UIText(ctx.Ctx)
	if err != nil {
		return nil, err
	}

	return resolver.Resolve(text, uiElements, resolver.Options{
		OCRFallback: ocrFallback,
		FetchOCR: func() ([]core.TextElement, error) {
			image, err := ctx.Device.Screenshot(ctx.Ctx)
			if err != nil {
				return nil, err
			}
			detection, err := ctx.OCR.Recognize(ctx.Ctx, image, languagesVariable(ctx), ctx.GetString("engine", ""))
			if err != nil {
				return nil, err
			}
			return detection.Elements, nil
		},
	})
}

// InputTextScript types text into the focused element.
func InputTextScript(ctx *Context) *Result {
	text := ctx.GetString("text", "")
	if text == "" {
		return NewErrorResult("input_text requires a text variable", nil)
	}
	if err := ctx.Device.TypeText(ctx.Ctx, text); err != nil {
		return NewErrorResult("text input failed", err)
	}
	return NewSuccessResult(fmt.Sprintf("typed %d characters", len(text)), nil)
}

// WaitScript pauses for a number of seconds.
func WaitScript(ctx *Context) *Result {
	seconds := ctx.GetInt("seconds", 1)
	if seconds < 0 {
		return NewErrorResult("wait requires a non-negative seconds variable", nil)
	}

	select {
	case <-time.After(time.Duration(seconds) * time.Second):
	case <-ctx.Ctx.Done():
		return NewErrorResult("wait interrupted", ctx.Ctx.Err())
	}
	return NewSuccessResult(fmt.Sprintf("waited %d seconds", seconds), nil)
}

// ExecuteShellScript runs a shell command on the device.
func ExecuteShellScript(ctx *Context) *Result {
	command := ctx.GetString("command", "")
	if command == "" {
		return NewErrorResult("execute_shell requires a command variable", nil)
	}

	output, err := ctx.Device.RunShell(ctx.Ctx, command)
	if err != nil {
		return NewErrorResult("shell command failed", err)
	}
	return NewSuccessResult("shell command executed", map[string]interface{}{
		"output": output,
	})
}

// ClickCoordinateScript taps the screen at explicit coordinates.
func ClickCoordinateScript(ctx *Context) *Result {
	x := ctx.GetInt("x", -1)
	y := ctx.GetInt("y", -1)
	if x < 0 || y < 0 {
		return NewErrorResult("click_coordinate requires x and y variables", nil)
	}

	if err := ctx.Device.Tap(ctx.Ctx, x, y); err != nil {
		return NewErrorResult(fmt.Sprintf("tap at (%d,%d) failed", x, y), err)
	}
	return NewSuccessResult(fmt.Sprintf("tapped (%d,%d)", x, y), map[string]interface{}{
		"x": x,
		"y": y,
	})
}

// Field labels tried in order when locating the login form controls.
var (
	usernameLabels = []string{"用户名", "账号"}
	passwordLabels = []string{"密码"}
	submitLabels   = []string{"登录", "确定"}
)

// Menu entries that open the app drawer, tried in order.
var appMenuLabels = []string{"应用", "所有应用", "菜单", "更多"}

// LoginScript fills in a username/password form and submits it: tap the
// username field, type, tap the password field, type, tap the login
// button, then let the app settle.
// Variables: username, password (both required), ocr_fallback (default
// true), settle_seconds (pause after submitting, default 3).
func LoginScript(ctx *Context) *Result {
	username := ctx.GetString("username", "")
	password := ctx.GetString("password", "")
	if username == "" || password == "" {
		return NewErrorResult("login requires username and password variables", nil)
	}
	ocrFallback := ctx.GetBool("ocr_fallback", true)

	if result := tapFirst(ctx, usernameLabels, ocrFallback); !result.Success {
		return result
	}
	if err := ctx.Device.TypeText(ctx.Ctx, username); err != nil {
		return NewErrorResult("username input failed", err)
	}

	if result := tapFirst(ctx, passwordLabels, ocrFallback); !result.Success {
		return result
	}
	if err := ctx.Device.TypeText(ctx.Ctx, password); err != nil {
		return NewErrorResult("password input failed", err)
	}

	if result := tapFirst(ctx, submitLabels, ocrFallback); !result.Success {
		return result
	}
	pause(ctx, ctx.GetInt("settle_seconds", 3))

	logger.Debug("login flow completed for %q", username)
	return NewSuccessResult("login flow completed", map[string]interface{}{
		"username": username,
		"steps_completed": []string{
			"tapped username field",
			"typed username",
			"tapped password field",
			"typed password",
			"tapped login button",
		},
	})
}

// SmartNavigateScript opens an app by name, falling back to the app
// drawer when the icon is not on the current screen.
// Variables: app_name (required), ocr_fallback (default true),
// settle_seconds (pause after opening the drawer, default 2).
func SmartNavigateScript(ctx *Context) *Result {
	appName := ctx.GetString("app_name", "")
	if appName == "" {
		return NewErrorResult("smart_navigate requires an app_name variable", nil)
	}
	ocrFallback := ctx.GetBool("ocr_fallback", true)

	direct := tapText(ctx, appName, ocrFallback, false)
	if !direct.Success {
		return direct
	}
	if found, _ := direct.Data["found"].(bool); found {
		return NewSuccessResult(fmt.Sprintf("opened %q from the current screen", appName), map[string]interface{}{
			"method": "direct_click",
			"app":    appName,
		})
	}

	menu := tapFirst(ctx, appMenuLabels, ocrFallback)
	if !menu.Success {
		return &Result{
			Success: false,
			Message: fmt.Sprintf("app %q is not on screen and no app menu was found", appName),
			Error:   "app menu not found",
		}
	}
	pause(ctx, ctx.GetInt("settle_seconds", 2))

	inMenu := tapText(ctx, appName, ocrFallback, true)
	if !inMenu.Success {
		return &Result{
			Success: false,
			Message: fmt.Sprintf("app %q not found in the app menu", appName),
			Data:    inMenu.Data,
			Error:   "app not found in menu",
		}
	}
	return NewSuccessResult(fmt.Sprintf("opened %q from the app menu", appName), map[string]interface{}{
		"method": "app_menu",
		"app":    appName,
	})
}

// tapFirst taps the first label present on screen. Missing an earlier
// label is not an error; detection and tap failures still are.
func tapFirst(ctx *Context, labels []string, ocrFallback bool) *Result {
	for _, label := range labels {
		result := tapText(ctx, label, ocrFallback, false)
		if !result.Success {
			return result
		}
		if found, _ := result.Data["found"].(bool); found {
			return result
		}
	}
	return &Result{
		Success: false,
		Message: fmt.Sprintf("none of %s found on screen", strings.Join(labels, ", ")),
		Error:   "text not found",
	}
}

// pause sleeps for the given seconds, returning early on cancellation.
func pause(ctx *Context, seconds int) {
	if seconds <= 0 {
		return
	}
	select {
	case <-time.After(time.Duration(seconds) * time.Second):
	case <-ctx.Ctx.Done():
	}
}

// languagesVariable parses the languages variable ("eng+chi_sim+jpn").
func languagesVariable(ctx *Context) []string {
	raw := ctx.GetString("languages", "")
	if raw == "" {
		return nil
	}
	var languages []string
	for _, lang := range strings.Split(raw, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			languages = append(languages, lang)
		}
	}
	return languages
}
