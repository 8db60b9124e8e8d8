package trainer

// Byte-level token ids: raw bytes occupy 0..255, specials sit above.
const (
	bytePadID = 256
	byteEOSID = 257
)

// ByteTokenizer is a vocabulary-free byte-level Tokenizer: every byte of
// the UTF-8 text is one token. It needs no external assets, which makes
// it the default when no model-specific tokenizer is wired in.
type ByteTokenizer struct{}

func (ByteTokenizer) Encode(text string) []int {
	out := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int(text[i])
	}
	return out
}

func (ByteTokenizer) Decode(ids []int) string {
	buf := make([]byte, 0, len(ids))
	for _, id := range ids {
		if id < 0 || id > 255 {
			continue
		}
		buf = append(buf, byte(id))
	}
	return string(buf)
}

func (ByteTokenizer) PadID() int { return bytePadID }
func (ByteTokenizer) EOSID() int { return byteEOSID }
