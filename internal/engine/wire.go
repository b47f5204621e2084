package engine

import (
	"github.com/progsynth/ast-env/go-env/internal/state"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc/encoding"
)

// #region methods

const (
	methodInit           = "/astengine.v1.Engine/Init"
	methodLoadAssignment = "/astengine.v1.Engine/LoadAssignment"
	methodApply          = "/astengine.v1.Engine/Apply"
	methodCheck          = "/astengine.v1.Engine/Check"
	methodRender         = "/astengine.v1.Engine/Render"
)

// #endregion methods

// #region messages

type initRequest struct {
	Seed int64 `msgpack:"seed"`
}

type ackResponse struct{}

type loadAssignmentRequest struct {
	Dir          string `msgpack:"dir"`
	Assignment   int32  `msgpack:"assignment"`
	Code         int32  `msgpack:"code"`
	Perturbation int32  `msgpack:"perturbation"`
}

type applyRequest struct {
	State  *state.Record `msgpack:"state"`
	Action int32         `msgpack:"action"`
}

type stateResponse struct {
	State *state.Record `msgpack:"state"`
}

type checkRequest struct {
	State *state.Record `msgpack:"state"`
}

type checkResponse struct {
	Reward int32 `msgpack:"reward"`
}

type renderRequest struct {
	State *state.Record `msgpack:"state"`
}

type renderResponse struct {
	Text string `msgpack:"text"`
}

// #endregion messages

// #region codec

// CodecName is the gRPC content-subtype for the engine's msgpack framing.
// The engine service carries plain records, not protobuf messages, so the
// wire codec is registered through grpc's encoding extension point.
const CodecName = "msgpack"

type msgpackCodec struct{}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (msgpackCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(msgpackCodec{})
}

// #endregion codec
