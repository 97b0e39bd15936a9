package payload

import (
	"fmt"
	"io"

	"github.com/valyala/fastjson"
)

// Pool hands out parsers for concurrent decoding.
type Pool struct {
	pp fastjson.ParserPool
}

// Decode parses data with a pooled parser. The returned value does not
// reference parser memory, so the parser is returned before Decode ends.
func (p *Pool) Decode(data []byte) (any, error) {
	parser := p.pp.Get()
	defer p.pp.Put(parser)

	v, err := parser.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return convert(v)
}

// ReadFrom is the pooled form of the package-level ReadFrom.
func (p *Pool) ReadFrom(r io.Reader, limit int64) (any, error) {
	data, err := readLimited(r, limit)
	if err != nil {
		return nil, err
	}
	return p.Decode(data)
}
