package wire

// Tag identifies a request or response frame's shape (§6's wire table).
type Tag uint8

const (
	TagConnect        Tag = 0x01
	TagReconnect      Tag = 0x02
	TagAddAgent       Tag = 0x03
	TagRemoveAgent    Tag = 0x04
	TagMove           Tag = 0x05
	TagTurn           Tag = 0x06
	TagNoOp           Tag = 0x07
	TagGetMap         Tag = 0x08
	TagGetAgentIDs    Tag = 0x09
	TagGetAgentStates Tag = 0x0A
	TagSetActive      Tag = 0x0B
	TagIsActive       Tag = 0x0C
	TagStep           Tag = 0x0D // server -> client, unsolicited
)

var tagNames = map[Tag]string{
	TagConnect:        "CONNECT",
	TagReconnect:      "RECONNECT",
	TagAddAgent:       "ADD_AGENT",
	TagRemoveAgent:    "REMOVE_AGENT",
	TagMove:           "MOVE",
	TagTurn:           "TURN",
	TagNoOp:           "NO_OP",
	TagGetMap:         "GET_MAP",
	TagGetAgentIDs:    "GET_AGENT_IDS",
	TagGetAgentStates: "GET_AGENT_STATES",
	TagSetActive:      "SET_ACTIVE",
	TagIsActive:       "IS_ACTIVE",
	TagStep:           "STEP",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}
