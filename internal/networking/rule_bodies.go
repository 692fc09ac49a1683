package networking

import (
	"encoding/binary"
	"fmt"
	"io"
)

// cursor reads fixed-width big-endian values out of a body buffer read in
// full up front (bodies are small; a control-plane round trip is not
// throughput-sensitive the way enforcement is).
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) i64() (int64, error) {
	if c.pos+8 > len(c.buf) {
		return 0, fmt.Errorf("networking: body truncated reading int64")
	}
	v := int64(binary.BigEndian.Uint64(c.buf[c.pos : c.pos+8]))
	c.pos += 8
	return v, nil
}

func (c *cursor) i32() (int32, error) {
	if c.pos+4 > len(c.buf) {
		return 0, fmt.Errorf("networking: body truncated reading int32")
	}
	v := int32(binary.BigEndian.Uint32(c.buf[c.pos : c.pos+4]))
	c.pos += 4
	return v, nil
}

func (c *cursor) u8() (byte, error) {
	if c.pos+1 > len(c.buf) {
		return 0, fmt.Errorf("networking: body truncated reading byte")
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func appendI64(buf []byte, v int64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

func appendI32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

// readBody reads exactly size bytes — the body following a ControlOperation
// header — from r.
func readBody(r io.Reader, size int32) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("networking: negative body size %d", size)
	}
	buf := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// CreateChannelBody is the create_housekeeping_rule/create_channel body
// (spec.md §6): channel_id, the channel-level selector tuple (-1 =
// wildcard), the active channel-differentiation selector mask, whether a
// default (no-op) object should be created alongside the channel, and the
// initial object-differentiation selector mask.
type CreateChannelBody struct {
	ChannelID             int64
	WorkflowID            int64
	OperationType         int64
	OperationContext      int64
	ChannelSelectorMask   uint8
	DefaultObjectCreation bool
	ObjectSelectorMask    uint8
}

// MarshalBinary encodes the body.
func (b CreateChannelBody) MarshalBinary() []byte {
	buf := make([]byte, 0, 8*4+3)
	buf = appendI64(buf, b.ChannelID)
	buf = appendI64(buf, b.WorkflowID)
	buf = appendI64(buf, b.OperationType)
	buf = appendI64(buf, b.OperationContext)
	buf = append(buf, b.ChannelSelectorMask)
	if b.DefaultObjectCreation {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, b.ObjectSelectorMask)
	return buf
}

// ParseCreateChannelBody decodes a body read via readBody.
func ParseCreateChannelBody(raw []byte) (CreateChannelBody, error) {
	c := newCursor(raw)
	var b CreateChannelBody
	var err error
	if b.ChannelID, err = c.i64(); err != nil {
		return b, err
	}
	if b.WorkflowID, err = c.i64(); err != nil {
		return b, err
	}
	if b.OperationType, err = c.i64(); err != nil {
		return b, err
	}
	if b.OperationContext, err = c.i64(); err != nil {
		return b, err
	}
	if b.ChannelSelectorMask, err = c.u8(); err != nil {
		return b, err
	}
	flag, err := c.u8()
	if err != nil {
		return b, err
	}
	b.DefaultObjectCreation = flag != 0
	if b.ObjectSelectorMask, err = c.u8(); err != nil {
		return b, err
	}
	return b, nil
}

// CreateObjectBody is the create_housekeeping_rule/create_object body:
// target channel/object, the object variant, its initial configuration
// (length-prefixed i64 values), and its differentiation tuple.
type CreateObjectBody struct {
	ChannelID        int64
	ObjectID         int64
	Variant          int32
	Configurations   []int64
	OperationType    int64
	OperationContext int64
}

// MarshalBinary encodes the body.
func (b CreateObjectBody) MarshalBinary() []byte {
	buf := make([]byte, 0, 32+4+len(b.Configurations)*8)
	buf = appendI64(buf, b.ChannelID)
	buf = appendI64(buf, b.ObjectID)
	buf = appendI32(buf, b.Variant)
	buf = appendI32(buf, int32(len(b.Configurations)))
	for _, v := range b.Configurations {
		buf = appendI64(buf, v)
	}
	buf = appendI64(buf, b.OperationType)
	buf = appendI64(buf, b.OperationContext)
	return buf
}

// ParseCreateObjectBody decodes a body read via readBody.
func ParseCreateObjectBody(raw []byte) (CreateObjectBody, error) {
	c := newCursor(raw)
	var b CreateObjectBody
	var err error
	if b.ChannelID, err = c.i64(); err != nil {
		return b, err
	}
	if b.ObjectID, err = c.i64(); err != nil {
		return b, err
	}
	if b.Variant, err = c.i32(); err != nil {
		return b, err
	}
	count, err := c.i32()
	if err != nil {
		return b, err
	}
	if count < 0 || int(count) > len(raw) {
		return b, fmt.Errorf("networking: implausible configuration count %d", count)
	}
	b.Configurations = make([]int64, count)
	for i := range b.Configurations {
		if b.Configurations[i], err = c.i64(); err != nil {
			return b, err
		}
	}
	if b.OperationType, err = c.i64(); err != nil {
		return b, err
	}
	if b.OperationContext, err = c.i64(); err != nil {
		return b, err
	}
	return b, nil
}

// EnforcementRuleBody is the create_enforcement_rule body: the rule's own
// id, the object it targets, the enforcement operation to apply, and up
// to three configuration property slots (-1 = unused).
type EnforcementRuleBody struct {
	RuleID               int64
	ChannelID            int64
	EnforcementObjectID  int64
	EnforcementOperation int32
	Properties           [3]int64
}

// MarshalBinary encodes the body.
func (b EnforcementRuleBody) MarshalBinary() []byte {
	buf := make([]byte, 0, 8*3+4+8*3)
	buf = appendI64(buf, b.RuleID)
	buf = appendI64(buf, b.ChannelID)
	buf = appendI64(buf, b.EnforcementObjectID)
	buf = appendI32(buf, b.EnforcementOperation)
	for _, p := range b.Properties {
		buf = appendI64(buf, p)
	}
	return buf
}

// ParseEnforcementRuleBody decodes a body read via readBody.
func ParseEnforcementRuleBody(raw []byte) (EnforcementRuleBody, error) {
	c := newCursor(raw)
	var b EnforcementRuleBody
	var err error
	if b.RuleID, err = c.i64(); err != nil {
		return b, err
	}
	if b.ChannelID, err = c.i64(); err != nil {
		return b, err
	}
	if b.EnforcementObjectID, err = c.i64(); err != nil {
		return b, err
	}
	if b.EnforcementOperation, err = c.i32(); err != nil {
		return b, err
	}
	for i := range b.Properties {
		if b.Properties[i], err = c.i64(); err != nil {
			return b, err
		}
	}
	return b, nil
}

// DifferentiationRuleBody carries a standalone differentiation rule:
// whether it targets a channel or an enforcement object, the target's
// id(s), and the classifier values the new routing token is built from.
type DifferentiationRuleBody struct {
	RuleID              int64
	IsObjectLevel        bool
	ChannelID            int64
	EnforcementObjectID  int64
	WorkflowID           int64
	OperationType        int64
	OperationContext     int64
}

// MarshalBinary encodes the body.
func (b DifferentiationRuleBody) MarshalBinary() []byte {
	buf := make([]byte, 0, 8*6+1)
	buf = appendI64(buf, b.RuleID)
	if b.IsObjectLevel {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = appendI64(buf, b.ChannelID)
	buf = appendI64(buf, b.EnforcementObjectID)
	buf = appendI64(buf, b.WorkflowID)
	buf = appendI64(buf, b.OperationType)
	buf = appendI64(buf, b.OperationContext)
	return buf
}

// ParseDifferentiationRuleBody decodes a body read via readBody.
func ParseDifferentiationRuleBody(raw []byte) (DifferentiationRuleBody, error) {
	c := newCursor(raw)
	var b DifferentiationRuleBody
	var err error
	if b.RuleID, err = c.i64(); err != nil {
		return b, err
	}
	flag, err := c.u8()
	if err != nil {
		return b, err
	}
	b.IsObjectLevel = flag != 0
	if b.ChannelID, err = c.i64(); err != nil {
		return b, err
	}
	if b.EnforcementObjectID, err = c.i64(); err != nil {
		return b, err
	}
	if b.WorkflowID, err = c.i64(); err != nil {
		return b, err
	}
	if b.OperationType, err = c.i64(); err != nil {
		return b, err
	}
	if b.OperationContext, err = c.i64(); err != nil {
		return b, err
	}
	return b, nil
}

// CollectStatisticsRequest names the (channel, object) pair to collect
// from.
type CollectStatisticsRequest struct {
	ChannelID int64
	ObjectID  int64
}

// MarshalBinary encodes the request.
func (r CollectStatisticsRequest) MarshalBinary() []byte {
	buf := make([]byte, 0, 16)
	buf = appendI64(buf, r.ChannelID)
	buf = appendI64(buf, r.ObjectID)
	return buf
}

// ParseCollectStatisticsRequest decodes a request read via readBody.
func ParseCollectStatisticsRequest(raw []byte) (CollectStatisticsRequest, error) {
	c := newCursor(raw)
	var r CollectStatisticsRequest
	var err error
	if r.ChannelID, err = c.i64(); err != nil {
		return r, err
	}
	if r.ObjectID, err = c.i64(); err != nil {
		return r, err
	}
	return r, nil
}

// RemoveRuleBody names the rule a remove_rule operation targets.
type RemoveRuleBody struct {
	RuleID int64
}

// MarshalBinary encodes the body.
func (b RemoveRuleBody) MarshalBinary() []byte {
	return appendI64(nil, b.RuleID)
}

// ParseRemoveRuleBody decodes a body read via readBody.
func ParseRemoveRuleBody(raw []byte) (RemoveRuleBody, error) {
	c := newCursor(raw)
	v, err := c.i64()
	return RemoveRuleBody{RuleID: v}, err
}
