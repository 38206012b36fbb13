package render

import (
	"strings"

	"golang.org/x/text/language"
)

// Style suffixes appended to user prompts so renders come out looking like
// product photography rather than generic diffusion output.
const (
	styleSuffixEN = "interior design, furniture, 8k resolution, masterpiece, detailed materials, soft lighting"
	styleSuffixZH = "室内设计, 家具, 8k分辨率, 杰作, 高清材质, 柔和光线"
)

var promptMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Chinese,
})

// BuildPrompt appends the locale-appropriate style suffix to the user's
// prompt. The suffix is skipped when the prompt already contains it, so
// retried jobs do not stack suffixes.
func BuildPrompt(prompt, locale string) string {
	prompt = strings.TrimSpace(prompt)
	suffix := styleSuffixEN
	if tag, err := language.Parse(locale); err == nil {
		if _, idx, conf := promptMatcher.Match(tag); conf > language.No && idx == 1 {
			suffix = styleSuffixZH
		}
	}
	if prompt == "" {
		return suffix
	}
	if strings.Contains(prompt, suffix) {
		return prompt
	}
	return prompt + ", " + suffix
}
