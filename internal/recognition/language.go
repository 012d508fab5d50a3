package recognition

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// CanonicalLanguage turns a user supplied hint such as "en" or "zh_cn" into a
// region-qualified BCP 47 tag ("en-US", "zh-CN"). Empty input stays empty.
func CanonicalLanguage(hint string) (string, error) {
	hint = strings.TrimSpace(strings.ReplaceAll(hint, "_", "-"))
	if hint == "" {
		return "", nil
	}
	tag, err := language.Parse(hint)
	if err != nil {
		return "", fmt.Errorf("language hint %q: %w", hint, err)
	}
	base, _ := tag.Base()
	region, _ := tag.Region()
	return base.String() + "-" + region.String(), nil
}
