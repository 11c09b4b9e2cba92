package wsengine

import (
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsflate"
)

// Run drives the session's frame loop. It blocks until the peer completes
// the closing handshake, Close is called locally, or an I/O error occurs.
// Inbound traffic is delivered to the message callback; fragmented messages
// are assembled before delivery. Run must be called at most once, after a
// successful ConnectToSocket.
func (s *Session) Run() {
	s.mu.Lock()
	conn := s.conn
	compressed := s.compressed
	s.mu.Unlock()

	if conn == nil {
		return
	}

	var (
		assembled  []byte
		messageOp  ws.OpCode
		messageRSV bool
		fragmented bool
	)

	for {
		frame, err := ws.ReadFrame(conn)
		if err != nil {
			if s.closed.Load() {
				s.deliver(&Message{
					Type:  MessageTypeClose,
					Close: &CloseInfo{Code: uint16(ws.StatusNormalClosure)},
				})
			} else {
				s.deliver(&Message{Type: MessageTypeError, Err: err})
				s.Close()
			}
			return
		}

		if frame.Header.Masked {
			frame = ws.UnmaskFrame(frame)
		}

		switch frame.Header.OpCode {
		case ws.OpPing:
			s.deliver(&Message{
				Type:     MessageTypePing,
				Data:     frame.Payload,
				WireSize: len(frame.Payload),
			})
			if s.pongEnabled.Load() {
				s.writeFrame(ws.NewPongFrame(frame.Payload))
			}

		case ws.OpPong:
			s.deliver(&Message{
				Type:     MessageTypePong,
				Data:     frame.Payload,
				WireSize: len(frame.Payload),
			})

		case ws.OpClose:
			code, reason := ws.ParseCloseFrameData(frame.Payload)
			if !s.closed.Load() {
				// Echo the closing handshake before tearing down.
				s.writeFrame(ws.NewCloseFrame(ws.NewCloseFrameBody(code, "")))
			}
			s.deliver(&Message{
				Type:  MessageTypeClose,
				Close: &CloseInfo{Code: uint16(code), Reason: reason, Remote: true},
			})
			s.Close()
			return

		case ws.OpText, ws.OpBinary:
			r1, _, _ := ws.RsvBits(frame.Header.Rsv)
			messageOp = frame.Header.OpCode
			messageRSV = r1
			if frame.Header.Fin {
				s.deliverData(messageOp, frame.Payload, messageRSV && compressed)
				continue
			}
			fragmented = true
			assembled = append(assembled[:0], frame.Payload...)

		case ws.OpContinuation:
			if !fragmented {
				continue
			}
			assembled = append(assembled, frame.Payload...)
			if frame.Header.Fin {
				fragmented = false
				s.deliverData(messageOp, assembled, messageRSV && compressed)
			}
		}
	}
}

// deliverData decompresses an assembled message when needed and hands it to
// the callback.
func (s *Session) deliverData(op ws.OpCode, payload []byte, compressed bool) {
	wireSize := len(payload)

	if compressed {
		frame := ws.NewFrame(op, true, payload)
		frame.Header.Rsv = ws.Rsv(true, false, false)
		decompressed, err := wsflate.DecompressFrame(frame)
		if err != nil {
			s.deliver(&Message{Type: MessageTypeError, Err: err})
			s.Close()
			return
		}
		payload = decompressed.Payload
	}

	data := make([]byte, len(payload))
	copy(data, payload)

	s.deliver(&Message{
		Type:     MessageTypeMessage,
		Data:     data,
		Binary:   op == ws.OpBinary,
		WireSize: wireSize,
	})
}
