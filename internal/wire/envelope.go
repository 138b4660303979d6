package wire

// Command identifies the IDN-Hello command byte of a packet.
type Command uint8

// Commands recognized by the core (spec.md §4.1). Unknown commands are
// ignored, not an error.
const (
	CmdPingRequest          Command = 0x08
	CmdPingResponse         Command = 0x09
	CmdScanRequest          Command = 0x10
	CmdScanResponse         Command = 0x11
	CmdServicemapRequest    Command = 0x12
	CmdServicemapResponse   Command = 0x13
	CmdRTCnlMsg             Command = 0x40
	CmdRTCnlMsgAckReq       Command = 0x41
	CmdRTCnlMsgClose        Command = 0x44
	CmdRTCnlMsgCloseAckReq  Command = 0x45
	CmdRTAbort              Command = 0x46
	CmdRTAcknowledge        Command = 0x47
)

// ClientGroupMask extracts the 4-bit client-group field from an envelope's
// flags byte.
const ClientGroupMask = 0x0F

// Envelope is the 4-byte IDN-Hello packet header shared by every command.
type Envelope struct {
	Command     Command
	Flags       uint8
	Sequence    uint16
	ClientGroup uint8
}

// ParseEnvelope reads the 4-byte envelope from the front of buf. It fails
// with ErrUnderflow if fewer than 4 bytes are present.
func ParseEnvelope(buf []byte) (Envelope, []byte, error) {
	c := NewCursor(buf)
	cmd, err := c.ReadU8()
	if err != nil {
		return Envelope{}, nil, err
	}
	flags, err := c.ReadU8()
	if err != nil {
		return Envelope{}, nil, err
	}
	seq, err := c.ReadU16()
	if err != nil {
		return Envelope{}, nil, err
	}
	e := Envelope{
		Command:     Command(cmd),
		Flags:       flags,
		Sequence:    seq,
		ClientGroup: flags & ClientGroupMask,
	}
	return e, buf[c.Offset:], nil
}

// AppendEnvelope serializes e and appends it to dst.
func AppendEnvelope(dst []byte, e Envelope) []byte {
	dst = append(dst, byte(e.Command), e.Flags)
	dst = PutU16(dst, e.Sequence)
	return dst
}
