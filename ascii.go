// This file implements the ASCII-record (type 5) text transcoding applied
// on read and write of TypeASCII files: space run-length compression and
// CR/LF translation between the on-disk record format and POSIX text.

package mdos

// DecodeASCIIRecord expands one on-disk byte into zero or more output
// bytes, per the type-5 record convention:
//
//   - a byte with the high bit set is a space run: bits 0-6 give the run
//     length, expanded to that many literal 0x20 bytes;
//   - 0x0D (CR) becomes 0x0A (LF);
//   - 0x0A (LF), 0x00 (NUL), 0x7F (DEL), and every other control byte
//     below 0x20 except TAB are dropped entirely;
//   - everything else passes through unchanged.
//
// Every input byte is consumed exactly once regardless of how many bytes
// it expands to or drops to -- callers that need to seek by on-disk
// position must track input position, never decoded-output position.
func DecodeASCIIRecord(b byte) []byte {
	if b&0x80 != 0 {
		n := int(b & 0x7F)
		out := make([]byte, n)
		for i := range out {
			out[i] = ' '
		}
		return out
	}

	switch b {
	case 0x0D:
		return []byte{0x0A}
	case 0x0A, 0x00, 0x7F:
		return nil
	}

	if b < 0x20 && b != 0x09 {
		return nil
	}

	return []byte{b}
}

// DecodeASCII expands a full on-disk record buffer into POSIX text.
func DecodeASCII(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		out = append(out, DecodeASCIIRecord(b)...)
	}
	return out
}

// EncodeASCII compresses POSIX text back into the on-disk type-5 record
// format: LF becomes CR, and runs of two or more spaces are collapsed into
// a single high-bit run-length byte. Runs longer than 127 spaces are split
// across multiple run bytes. A lone space is left as a literal 0x20 --
// collapsing it would cost a byte rather than save one.
func EncodeASCII(text []byte) []byte {
	out := make([]byte, 0, len(text))

	i := 0
	for i < len(text) {
		b := text[i]

		if b == 0x0A {
			out = append(out, 0x0D)
			i++
			continue
		}

		if b == ' ' {
			run := 1
			for i+run < len(text) && text[i+run] == ' ' {
				run++
			}

			if run == 1 {
				out = append(out, ' ')
				i++
				continue
			}

			remaining := run
			for remaining > 0 {
				chunk := remaining
				if chunk > 127 {
					chunk = 127
				}
				out = append(out, 0x80|byte(chunk))
				remaining -= chunk
			}
			i += run
			continue
		}

		out = append(out, b)
		i++
	}

	return out
}
