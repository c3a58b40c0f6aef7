package session

import "edgegen/internal/backend"

// pieceBuffer converts tokens to bytes with a growable scratch buffer capped
// at max bytes. Pieces longer than max are truncated to max.
type pieceBuffer struct {
	buf []byte
	max int
}

func newPieceBuffer(max int) *pieceBuffer {
	return &pieceBuffer{buf: make([]byte, min(64, max)), max: max}
}

// fill returns the bytes of tok. The slice aliases internal storage and is
// valid until the next call.
func (p *pieceBuffer) fill(m backend.Model, tok backend.Token) []byte {
	n := m.TokenToPiece(tok, p.buf)
	if n >= 0 {
		return p.buf[:n]
	}
	need := -n
	if need <= p.max {
		p.buf = make([]byte, need)
		if n = m.TokenToPiece(tok, p.buf); n < 0 {
			return nil
		}
		return p.buf[:n]
	}
	tmp := make([]byte, need)
	if n = m.TokenToPiece(tok, tmp); n < 0 {
		return nil
	}
	return tmp[:min(n, p.max)]
}
