package networking

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dsrhaslab/paio-stage/internal/stage"
)

// Fixed field sizes for StageInfoRaw/StageHandshakeRaw (spec.md §6). Names
// mirror the original's HOST_NAME_MAX/LOGIN_NAME_MAX-style constants.
const (
	stageNameMax  = 64
	stageEnvMax   = 32
	hostNameMax   = 64
	loginNameMax  = 32
	addrMax       = 108 // matches a Unix socket path's traditional sun_path length
	stageInfoSize = stageNameMax + stageEnvMax + 4 + 4 + hostNameMax + loginNameMax
	handshakeSize = addrMax + 4
)

// StageInfoRaw is the fixed-layout record a Handshake handler submits once
// to the control plane: the stage's name, optional environment string,
// process identity, and host/login metadata.
type StageInfoRaw struct {
	StageName      string
	StageEnv       string
	PID            int32
	PPID           int32
	StageHostname  string
	StageLoginName string
}

// NewStageInfoRaw converts a stage.Info into its wire form, rejecting
// fields that would not fit the fixed-layout record (spec.md §6: "oversize
// fields MUST be rejected with an out-of-range error before writing").
func NewStageInfoRaw(info stage.Info) (StageInfoRaw, error) {
	raw := StageInfoRaw{
		StageName:      info.Name,
		StageEnv:       info.Opt,
		PID:            int32(info.PID),
		PPID:           int32(info.PPID),
		StageHostname:  info.Hostname,
		StageLoginName: info.LoginName,
	}
	if len(raw.StageName) > stageNameMax {
		return StageInfoRaw{}, fmt.Errorf("networking: stage name exceeds %d bytes", stageNameMax)
	}
	if len(raw.StageEnv) > stageEnvMax {
		return StageInfoRaw{}, fmt.Errorf("networking: stage env exceeds %d bytes", stageEnvMax)
	}
	if len(raw.StageHostname) > hostNameMax {
		return StageInfoRaw{}, fmt.Errorf("networking: stage hostname exceeds %d bytes", hostNameMax)
	}
	if len(raw.StageLoginName) > loginNameMax {
		return StageInfoRaw{}, fmt.Errorf("networking: stage login name exceeds %d bytes", loginNameMax)
	}
	return raw, nil
}

// MarshalBinary encodes the StageInfoRaw as zero-padded fixed fields.
func (s StageInfoRaw) MarshalBinary() ([]byte, error) {
	buf := make([]byte, stageInfoSize)
	off := 0
	if err := putFixedString(buf[off:], stageNameMax, s.StageName); err != nil {
		return nil, err
	}
	off += stageNameMax
	if err := putFixedString(buf[off:], stageEnvMax, s.StageEnv); err != nil {
		return nil, err
	}
	off += stageEnvMax
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(s.PID))
	off += 4
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(s.PPID))
	off += 4
	if err := putFixedString(buf[off:], hostNameMax, s.StageHostname); err != nil {
		return nil, err
	}
	off += hostNameMax
	if err := putFixedString(buf[off:], loginNameMax, s.StageLoginName); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadStageInfoRaw decodes a StageInfoRaw from r.
func ReadStageInfoRaw(r io.Reader) (StageInfoRaw, error) {
	buf := make([]byte, stageInfoSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return StageInfoRaw{}, err
	}
	off := 0
	name := getFixedString(buf[off : off+stageNameMax])
	off += stageNameMax
	env := getFixedString(buf[off : off+stageEnvMax])
	off += stageEnvMax
	pid := int32(binary.BigEndian.Uint32(buf[off : off+4]))
	off += 4
	ppid := int32(binary.BigEndian.Uint32(buf[off : off+4]))
	off += 4
	hostname := getFixedString(buf[off : off+hostNameMax])
	off += hostNameMax
	login := getFixedString(buf[off : off+loginNameMax])
	return StageInfoRaw{
		StageName: name, StageEnv: env, PID: pid, PPID: ppid,
		StageHostname: hostname, StageLoginName: login,
	}, nil
}

// StageHandshakeRaw is the fixed-layout response the control plane sends
// back after a StageInfoRaw: the address and port of the socket the
// southbound handler must connect to next.
type StageHandshakeRaw struct {
	Address string
	Port    int32
}

// MarshalBinary encodes the StageHandshakeRaw.
func (h StageHandshakeRaw) MarshalBinary() ([]byte, error) {
	buf := make([]byte, handshakeSize)
	if err := putFixedString(buf[:addrMax], addrMax, h.Address); err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint32(buf[addrMax:addrMax+4], uint32(h.Port))
	return buf, nil
}

// ReadStageHandshakeRaw decodes a StageHandshakeRaw from r.
func ReadStageHandshakeRaw(r io.Reader) (StageHandshakeRaw, error) {
	buf := make([]byte, handshakeSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return StageHandshakeRaw{}, err
	}
	address := getFixedString(buf[:addrMax])
	port := int32(binary.BigEndian.Uint32(buf[addrMax : addrMax+4]))
	return StageHandshakeRaw{Address: address, Port: port}, nil
}
