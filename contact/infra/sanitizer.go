package infra

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// aspas não precisam de escape em nó de texto; escapadas quebram o reply-to
// (o'brien@...) e aparecem cruas no corpo em texto puro
var quoteUnescaper = strings.NewReplacer("&#39;", "'", "&#34;", `"`)

// HTMLSanitizer remove qualquer tag (conteúdo de <script>/<style> incluído)
// e escapa &, < e > no texto restante. Aplicar duas vezes dá o mesmo
// resultado: as entidades são decodificadas antes de serem escapadas de novo.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

func NewHTMLSanitizer() *HTMLSanitizer {
	return &HTMLSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *HTMLSanitizer) Sanitize(in string) string {
	return quoteUnescaper.Replace(s.policy.Sanitize(in))
}
