package infra

import "encoding/json"

// decodeList interpreta um valor como lista JSON de strings.
// Valor vazio ou inválido vira lista vazia.
func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}

func prependList(raw, item string) (string, int, error) {
	list := append([]string{item}, decodeList(raw)...)
	b, err := json.Marshal(list)
	if err != nil {
		return "", 0, err
	}
	return string(b), len(list), nil
}
