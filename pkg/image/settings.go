package image

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Provider kinds accepted in Settings.Provider.
const (
	ProviderFile = "file"
	ProviderWiki = "wiki"
)

// Defaults for Settings.
const (
	DefaultDir          = "images"
	DefaultConcurrency  = 4
	DefaultRateLimit    = 5.0
	DefaultTimeout      = 10 * time.Second
	DefaultWikiEndpoint = "https://en.wikipedia.org/w/api.php"
)

var validate = newValidator()

// newValidator reports fields by their config key rather than the Go name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Settings configures a provider. It is decoded from the document's
// config.images mapping.
type Settings struct {
	Provider string `json:"provider" validate:"omitempty,oneof=file wiki"`
	Dir      string `json:"dir" validate:"required"`
	// BasePath is accepted as an alias of Dir.
	BasePath    string  `json:"base_path" validate:"-"`
	Default     string  `json:"default"`
	Endpoint    string  `json:"endpoint" validate:"omitempty,url"`
	Concurrency int     `json:"concurrency" validate:"gte=1,lte=32"`
	RateLimit   float64 `json:"rate_limit" validate:"gte=0"`
	// TimeoutSeconds bounds each HTTP request.
	TimeoutSeconds int `json:"timeout_seconds" validate:"gte=0"`
}

// Timeout returns the per-request timeout.
func (s Settings) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// ParseSettings decodes cfg, applies defaults and validates the result.
func ParseSettings(cfg map[string]any) (Settings, error) {
	var s Settings
	if len(cfg) > 0 {
		data, err := json.Marshal(cfg)
		if err != nil {
			return Settings{}, fmt.Errorf("images: %w", err)
		}
		if err := json.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("images: %w", err)
		}
	}
	s.setDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) setDefaults() {
	if s.Dir == "" {
		s.Dir = s.BasePath
	}
	if s.Dir == "" {
		s.Dir = DefaultDir
	}
	if s.Provider == "" {
		s.Provider = ProviderFile
	}
	if s.Concurrency == 0 {
		s.Concurrency = DefaultConcurrency
	}
	if s.RateLimit == 0 {
		s.RateLimit = DefaultRateLimit
	}
	if s.Provider == ProviderWiki && s.Endpoint == "" {
		s.Endpoint = DefaultWikiEndpoint
	}
}

// Validate checks the settings with struct tags.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			return fmt.Errorf("images.%s: field is required", e.Field())
		case "oneof":
			return fmt.Errorf("images.%s: must be one of %s", e.Field(), e.Param())
		case "url":
			return fmt.Errorf("images.%s: must be a URL", e.Field())
		case "gte":
			return fmt.Errorf("images.%s: must be at least %s", e.Field(), e.Param())
		case "lte":
			return fmt.Errorf("images.%s: must not exceed %s", e.Field(), e.Param())
		default:
			return fmt.Errorf("images.%s: validation failed (%s)", e.Field(), e.Tag())
		}
	}
	return err
}
