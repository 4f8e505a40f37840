package crypto

// Envelope markers. A protected value is a JSON object with one "$crypto" key
// whose "type" says how "value" was produced.
const (
	envelopeKey       = "$crypto"
	typeEncrypted     = "x-simple-encryption"
	typeSaltedHash    = "salted-hash"
	fieldType         = "type"
	fieldValue        = "value"
	fieldCipher       = "cipher"
	fieldKey          = "key"
	fieldIV           = "iv"
	fieldData         = "data"
	fieldAlgorithm    = "algorithm"
	fieldSalt         = "salt"
	defaultSaltLength = 16
)

func newEnvelope(kind string, value map[string]any) map[string]any {
	return map[string]any{
		envelopeKey: map[string]any{
			fieldType:  kind,
			fieldValue: value,
		},
	}
}

// openEnvelope returns the inner value of an envelope of the given kind.
func openEnvelope(v any, kind string) (map[string]any, bool) {
	outer, ok := v.(map[string]any)
	if !ok || len(outer) != 1 {
		return nil, false
	}
	inner, ok := outer[envelopeKey].(map[string]any)
	if !ok || inner[fieldType] != kind {
		return nil, false
	}
	value, ok := inner[fieldValue].(map[string]any)
	return value, ok
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
