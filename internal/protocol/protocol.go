package protocol

import (
	"errors"

	"github.com/tidwall/gjson"
)

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeAct     = "ACT"
	TypePreview = "PREVIEW"
	TypeObs     = "OBS"
	TypeError   = "ERROR"
)

var ErrMalformed = errors.New("malformed message")

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	if !gjson.ValidBytes(b) {
		return BaseMessage{}, ErrMalformed
	}
	r := gjson.ParseBytes(b)
	if !r.IsObject() {
		return BaseMessage{}, ErrMalformed
	}
	return BaseMessage{
		Type:            r.Get("type").String(),
		ProtocolVersion: r.Get("protocol_version").String(),
	}, nil
}
