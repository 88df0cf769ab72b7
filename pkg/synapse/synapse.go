// Envelope of the messages published to the broker
package synapse

import (
	"encoding/json"
)

const (
	TypeSnapshot = "tracks-snapshot"
	TypeFinal    = "tracks-final"
)

type Command struct {
	Id        uint64          `json:"id"`
	Sender    string          `json:"sender"`
	Type      string          `json:"type"`
	Initiator string          `json:"initiator"`
	Subject   string          `json:"subject"`
	Message   json.RawMessage `json:"message"`
}

// message must be a valid JSON document
func NewCommand(id uint64, sender, command_type string, message []byte) *Command {
	return &Command{
		Id:        id,
		Sender:    sender,
		Type:      command_type,
		Initiator: sender,
		Subject:   "tracks",
		Message:   json.RawMessage(message),
	}
}

func (c *Command) ToPayload() ([]byte, error) {
	return json.Marshal(c)
}
