package oci

// ColumnTruncated is the column return code for a value cut to fit its buffer (ORA-01406).
const ColumnTruncated uint16 = 1406

// WriteText renders text into def as a NUL-terminated string, the way the
// driver fills an SQLT_STR define on fetch. Text longer than the buffer is
// truncated, the indicator carries the original length and the returned
// status is SuccessWithInfo.
func WriteText(def *Define, text string) Status {
	if len(def.Buf) == 0 {
		def.Indicator = int16(clampLen(len(text)))
		def.Len = 0
		def.RCode = ColumnTruncated
		return SuccessWithInfo
	}
	limit := len(def.Buf) - 1
	n := copy(def.Buf[:limit], text)
	def.Buf[n] = 0
	def.Len = uint16(n)
	if n < len(text) {
		def.Indicator = int16(clampLen(len(text)))
		def.RCode = ColumnTruncated
		return SuccessWithInfo
	}
	def.Indicator = 0
	def.RCode = 0
	return Success
}

// WriteNull marks def as NULL for the current row.
func WriteNull(def *Define) {
	if len(def.Buf) > 0 {
		def.Buf[0] = 0
	}
	def.Indicator = -1
	def.Len = 0
	def.RCode = 0
}

// Text returns the NUL-terminated contents of def's buffer as a new string.
func (d *Define) Text() string {
	n := int(d.Len)
	if n > len(d.Buf) {
		n = len(d.Buf)
	}
	for i := 0; i < n; i++ {
		if d.Buf[i] == 0 {
			n = i
			break
		}
	}
	return string(d.Buf[:n])
}

// IsNull reports whether the last fetch stored NULL.
func (d *Define) IsNull() bool {
	return d.Indicator == -1
}

func clampLen(n int) int {
	if n > 32767 {
		return 32767
	}
	return n
}
