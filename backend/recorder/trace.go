package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// WriteTrace writes the call log to w as zstd-compressed JSON lines.
func (r *Recorder) WriteTrace(w io.Writer) error {
	calls := r.Calls()

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return fmt.Errorf("recorder: trace encoder: %w", err)
	}
	bw := bufio.NewWriter(enc)
	je := json.NewEncoder(bw)
	for i := range calls {
		if err := je.Encode(&calls[i]); err != nil {
			_ = enc.Close()
			return fmt.Errorf("recorder: encode call %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return fmt.Errorf("recorder: flush trace: %w", err)
	}
	return enc.Close()
}

// SaveTrace writes the call log to a file at path.
func (r *Recorder) SaveTrace(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteTrace(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadTrace decodes a trace written by WriteTrace.
func ReadTrace(rd io.Reader) ([]Call, error) {
	dec, err := zstd.NewReader(rd)
	if err != nil {
		return nil, fmt.Errorf("recorder: trace decoder: %w", err)
	}
	defer dec.Close()

	var calls []Call
	jd := json.NewDecoder(dec)
	for {
		var c Call
		if err := jd.Decode(&c); err == io.EOF {
			return calls, nil
		} else if err != nil {
			return calls, fmt.Errorf("recorder: decode call %d: %w", len(calls), err)
		}
		calls = append(calls, c)
	}
}
