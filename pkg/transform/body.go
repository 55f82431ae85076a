package transform

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// injectable are the only fields a request set can add, in output order.
var injectable = []string{"system", "tools", "metadata"}

// injectBody rebuilds a JSON object body with model and messages first,
// then system, tools and metadata (the client's value wins over fields),
// then the remaining client fields in their original order. The output is
// compact. Anything that is not a JSON object, or an empty field set,
// returns body unchanged.
func injectBody(body []byte, fields map[string]any) []byte {
	if len(fields) == 0 || !gjson.ValidBytes(body) {
		return body
	}

	compact := gjson.GetBytes(body, "@ugly")
	if !compact.IsObject() {
		return body
	}

	// Later duplicates overwrite the value but keep the first position.
	var order []string
	rawKeys := make(map[string]string)
	values := make(map[string]string)
	compact.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if _, seen := values[k]; !seen {
			order = append(order, k)
			rawKeys[k] = key.Raw
		}
		values[k] = value.Raw
		return true
	})

	out := make([]byte, 0, len(compact.Raw)+64)
	out = append(out, '{')
	written := make(map[string]bool, len(order)+len(injectable))
	write := func(rawKey, rawValue string) {
		if len(out) > 1 {
			out = append(out, ',')
		}
		out = append(out, rawKey...)
		out = append(out, ':')
		out = append(out, rawValue...)
	}

	for _, k := range []string{"model", "messages"} {
		if v, ok := values[k]; ok {
			write(rawKeys[k], v)
			written[k] = true
		}
	}

	for _, k := range injectable {
		if v, ok := values[k]; ok {
			write(rawKeys[k], v)
			written[k] = true
			continue
		}
		f, ok := fields[k]
		if !ok {
			continue
		}
		raw, err := json.Marshal(f)
		if err != nil {
			return body
		}
		write(`"`+k+`"`, string(raw))
		written[k] = true
	}

	for _, k := range order {
		if !written[k] {
			write(rawKeys[k], values[k])
		}
	}

	return append(out, '}')
}
