package service

import (
	"mcuhal-go/bus"
	"mcuhal-go/errcode"
	"mcuhal-go/types"
)

func (s *Service) reply(m *bus.Message, payload any) {
	if m.CanReply() {
		s.conn.Reply(m, payload, false)
	}
}

func (s *Service) replyErr(m *bus.Message, err error) {
	if !m.CanReply() {
		return
	}
	code := errcode.Of(err)
	if code == errcode.OK {
		code = errcode.Error
	}
	s.conn.Reply(m, types.ErrorReply{OK: false, Error: string(code)}, false)
}
