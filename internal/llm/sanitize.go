package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/joseph-ayodele/fatture-in-chat/constants"
)

const paymentMethodKey = "modalitaPagamento"

// NormalizeToolArguments cleans model-produced tool arguments before validation.
//   - Trims strings and drops empty/null values
//   - Removes keys the schema does not declare
//   - Maps payment method synonyms onto the canonical list
//
// Numbers are never coerced: a string where a number is expected stays a string
// and fails validation.
func NormalizeToolArguments(schema map[string]any, raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 4)
	normalizeObject(schema, m, "", &dropped)

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.tool.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func normalizeObject(schema map[string]any, m map[string]any, prefix string, dropped *[]string) {
	props, _ := schema["properties"].(map[string]any)
	closed := schema["additionalProperties"] == false

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := prefix + k
		propSchema, known := props[k].(map[string]any)
		if !known && closed {
			delete(m, k)
			*dropped = append(*dropped, path+"(unknown)")
			continue
		}

		switch t := m[k].(type) {
		case nil:
			delete(m, k)
			*dropped = append(*dropped, path+"(null)")
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				delete(m, k)
				*dropped = append(*dropped, path+"(empty)")
				continue
			}
			if k == paymentMethodKey {
				if pm, ok := constants.CanonicalPaymentMethod(s); ok {
					s = pm
				}
			}
			m[k] = s
		case map[string]any:
			if propSchema != nil {
				normalizeObject(propSchema, t, path+".", dropped)
			}
		}
	}
}
