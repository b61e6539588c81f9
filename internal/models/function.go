package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Language is the source language of a function node.
type Language string

// Supported languages.
const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
)

const javaScriptTemplate = `// Receives the upstream payload and returns the value passed downstream.
function handler(input) {
  return input;
}
`

const typeScriptTemplate = `// Receives the upstream payload and returns the value passed downstream.
export function handler(input: unknown): unknown {
  return input;
}
`

// DefaultCode returns the starter source for a language.
func DefaultCode(lang Language) string {
	switch lang {
	case LanguageTypeScript:
		return typeScriptTemplate
	case LanguageJavaScript:
		return javaScriptTemplate
	}
	return ""
}

// FunctionConfig holds the source code of a function node.
type FunctionConfig struct {
	Language Language `json:"language"`
	Code     string   `json:"code"`
}

// NewFunctionConfig returns a function payload seeded with the language template.
func NewFunctionConfig(lang Language) *FunctionConfig {
	return &FunctionConfig{Language: lang, Code: DefaultCode(lang)}
}

// SetLanguage switches the language. The code is replaced by the new
// template only while it is empty or still the old template.
func (c *FunctionConfig) SetLanguage(lang Language) {
	if c.Code == "" || c.Code == DefaultCode(c.Language) {
		c.Code = DefaultCode(lang)
	}
	c.Language = lang
}

// Kind implements Config.
func (c *FunctionConfig) Kind() Kind { return KindFunction }

// Clone implements Config.
func (c *FunctionConfig) Clone() Config {
	out := *c
	return &out
}

// Validate implements Config.
func (c *FunctionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Language, validation.Required, validation.In(LanguageJavaScript, LanguageTypeScript)),
	)
}
