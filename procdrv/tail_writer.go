package procdrv

import "bytes"

// DefaultTailSize is how much of a product's build output is kept for the
// failure report.
const DefaultTailSize = 4 << 10

// TailWriter keeps the last bytes written to it. Writes go into the
// current buffer; once it holds the limit, the previous buffer is dropped
// and the two swap roles. Memory stays under twice the limit.
type TailWriter struct {
	prev  bytes.Buffer
	cur   bytes.Buffer
	limit int
}

// NewTailWriter makes a writer that keeps the last limit bytes.
func NewTailWriter(limit int) *TailWriter {
	if limit <= 0 {
		limit = DefaultTailSize
	}
	return &TailWriter{limit: limit}
}

func (w *TailWriter) Write(p []byte) (int, error) {
	n := len(p)
	if n >= w.limit {
		w.prev.Reset()
		w.cur.Reset()
		w.cur.Write(p[n-w.limit:])
		return n, nil
	}

	w.cur.Write(p)
	if w.cur.Len() >= w.limit {
		w.prev.Reset()
		w.prev, w.cur = w.cur, w.prev
	}
	return n, nil
}

// Bytes returns a copy of the kept bytes.
func (w *TailWriter) Bytes() []byte {
	prev := w.prev.Bytes()
	cur := w.cur.Bytes()
	if over := len(prev) + len(cur) - w.limit; over > 0 {
		prev = prev[over:]
	}
	out := make([]byte, 0, len(prev)+len(cur))
	out = append(out, prev...)
	return append(out, cur...)
}

func (w *TailWriter) String() string { return string(w.Bytes()) }
