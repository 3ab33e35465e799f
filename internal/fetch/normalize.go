package fetch

import (
	"golang.org/x/text/transform"
)

// NormalizeLineEndings rewrites every line terminator to a single "\n".
//
// A line ending is any run of '\r' followed by '\n', or a run of '\r' at the
// very end of the content. A '\r' that is followed by other text stays.
func NormalizeLineEndings(b []byte) []byte {
	out, _, err := transform.Bytes(lineEndings{}, b)
	if err != nil {
		// lineEndings never fails on complete input.
		return b
	}
	return out
}

type lineEndings struct{}

func (lineEndings) Reset() {}

func (lineEndings) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]
		if c != '\r' {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = c
			nDst++
			nSrc++
			continue
		}

		end := nSrc
		for end < len(src) && src[end] == '\r' {
			end++
		}
		switch {
		case end == len(src) && !atEOF:
			return nDst, nSrc, transform.ErrShortSrc
		case end == len(src) || src[end] == '\n':
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = '\n'
			nDst++
			if end < len(src) {
				end++
			}
			nSrc = end
		default:
			n := end - nSrc
			if nDst+n > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			copy(dst[nDst:], src[nSrc:end])
			nDst += n
			nSrc = end
		}
	}
	return nDst, nSrc, nil
}

// UniversalNewlines rewrites "\r\n" and every remaining '\r' to "\n", the
// way a local text file is read line by line. Unlike NormalizeLineEndings a
// '\r' inside a line ends it.
func UniversalNewlines(b []byte) []byte {
	out, _, err := transform.Bytes(universalNewlines{}, b)
	if err != nil {
		return b
	}
	return out
}

type universalNewlines struct{}

func (universalNewlines) Reset() {}

func (universalNewlines) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		c := src[nSrc]
		if c != '\r' {
			dst[nDst] = c
			nDst++
			nSrc++
			continue
		}
		// A '\r' at the end of a chunk may be the first half of "\r\n".
		if nSrc+1 == len(src) && !atEOF {
			return nDst, nSrc, transform.ErrShortSrc
		}
		dst[nDst] = '\n'
		nDst++
		nSrc++
		if nSrc < len(src) && src[nSrc] == '\n' {
			nSrc++
		}
	}
	return nDst, nSrc, nil
}
