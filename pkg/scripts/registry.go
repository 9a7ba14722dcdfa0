package scripts

import (
	"sort"
)

// Handler executes one script. Variables travel in the context; the
// returned result decides whether the execution completes or fails.
type Handler func(ctx *Context) *Result

// Info describes a registered script for API introspection.
type Info struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// Registry is the closed mapping from script name to handler. The set is
// fixed at construction; there is no mutation and no global instance.
type Registry struct {
	handlers map[string]Handler
	infos    []Info
}

// NewRegistry builds the registry with all built-in scripts plus any
// custom handlers. Custom entries win on name collision.
func NewRegistry(custom map[string]Handler) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
	}
	r.registerBuiltins()
	for name, handler := range custom {
		r.handlers[name] = handler
		r.infos = append(r.infos, Info{Name: name, Description: "custom script"})
	}
	sort.Slice(r.infos, func(i, j int) bool { return r.infos[i].Name < r.infos[j].Name })
	return r
}

func (r *Registry) register(info Info, handler Handler) {
	r.handlers[info.Name] = handler
	r.infos = append(r.infos, info)
}

// Get returns the handler for a script name.
func (r *Registry) Get(name string) (Handler, bool) {
	handler, exists := r.handlers[name]
	return handler, exists
}

// Names returns all registered script names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns descriptions of all registered scripts.
func (r *Registry) List() []Info {
	return append([]Info(nil), r.infos...)
}

func (r *Registry) registerBuiltins() {
	r.register(Info{
		Name:        "screenshot",
		Description: "capture the current screen",
	}, ScreenshotScript)

	r.register(Info{
		Name:        "get_ui_text",
		Description: "extract text elements from the UI hierarchy",
	}, GetUITextScript)

	r.register(Info{
		Name:        "get_ocr_text",
		Description: "extract text elements from a screenshot via OCR",
		Parameters: map[string]string{
			"languages": "language codes joined by +, default eng",
			"engine":    "OCR engine name, default engine when empty",
		},
	}, GetOCRTextScript)

	r.register(Info{
		Name:        "find_and_click_enhanced",
		Description: "locate text via UI tree with OCR fallback and tap it",
		Parameters: map[string]string{
			"text":         "text to locate (required)",
			"ocr_fallback": "consult OCR when the UI has no match, default true",
			"required":     "fail when the text is not found, default true",
			"timeout":      "overall deadline in seconds",
		},
	}, FindAndClickEnhancedScript)

	r.register(Info{
		Name:        "check_text_enhanced",
		Description: "report whether text is on screen, UI tree first then OCR",
		Parameters: map[string]string{
			"text":         "text to locate (required)",
			"ocr_fallback": "consult OCR when the UI has no match, default true",
			"timeout":      "overall deadline in seconds",
		},
	}, CheckTextEnhancedScript)

	r.register(Info{
		Name:        "find_and_click",
		Description: "locate text in the UI tree only and tap it",
		Parameters: map[string]string{
			"text":     "text to locate (required)",
			"required": "fail when the text is not found, default true",
			"timeout":  "overall deadline in seconds",
		},
	}, FindAndClickScript)

	r.register(Info{
		Name:        "check_text",
		Description: "report whether text is in the UI tree",
		Parameters: map[string]string{
			"text": "text to locate (required)",
		},
	}, CheckTextScript)

	r.register(Info{
		Name:        "input_text",
		Description: "type text into the focused element",
		Parameters: map[string]string{
			"text": "text to type (required)",
		},
	}, InputTextScript)

	r.register(Info{
		Name:        "wait",
		Description: "pause for a number of seconds",
		Parameters: map[string]string{
			"seconds": "seconds to wait, default 1",
		},
	}, WaitScript)

	r.register(Info{
		Name:        "execute_shell",
		Description: "run a shell command on the device",
		Parameters: map[string]string{
			"command": "shell command line (required)",
		},
	}, ExecuteShellScript)

	r.register(Info{
		Name:        "login",
		Description: "fill in a username/password form and submit it",
		Parameters: map[string]string{
			"username":       "account name to type (required)",
			"password":       "password to type (required)",
			"ocr_fallback":   "consult OCR when the UI has no match, default true",
			"settle_seconds": "pause after submitting, default 3",
		},
	}, LoginScript)

	r.register(Info{
		Name:        "smart_navigate",
		Description: "open an app by name, via the app menu when needed",
		Parameters: map[string]string{
			"app_name":       "app to open (required)",
			"ocr_fallback":   "consult OCR when the UI has no match, default true",
			"settle_seconds": "pause after opening the app menu, default 2",
		},
	}, SmartNavigateScript)

	r.register(Info{
		Name:        "click_coordinate",
		Description: "tap the screen at explicit coordinates",
		Parameters: map[string]string{
			"x": "X coordinate (required)",
			"y": "Y coordinate (required)",
		},
	}, ClickCoordinateScript)
}
