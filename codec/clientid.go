package codec

import (
	"tick2trade/utils"
)

// AppendClientID renders `<prefix><seq>` into dst without allocating when
// dst has room.
func AppendClientID(dst, prefix []byte, seq uint64) []byte {
	dst = append(dst, prefix...)
	var scratch [20]byte
	i := len(scratch)
	for {
		i--
		scratch[i] = byte('0' + seq%10)
		seq /= 10
		if seq == 0 {
			break
		}
	}
	return append(dst, scratch[i:]...)
}

// ParseClientID recovers seq from `<prefix><seq>`. ok is false for ids
// minted by another session or not minted by us at all.
func ParseClientID(id, prefix []byte) (seq uint64, ok bool) {
	if len(id) <= len(prefix) || utils.B2s(id[:len(prefix)]) != utils.B2s(prefix) {
		return 0, false
	}
	return utils.ParseUint(id[len(prefix):])
}
