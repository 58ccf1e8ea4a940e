// utilitário pequeno para formatação rápida/consistente de valores numéricos em headers.

package intake

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatInt64(v int64) string { return strconv.FormatInt(v, 10) }

// formatRetryAfter arredonda para cima: Retry-After é em segundos inteiros e
// "0" faria o cliente tentar de novo cedo demais.
func formatRetryAfter(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return formatInt(secs)
}
