package bridge

import (
	"encoding/json"

	"github.com/dep2p/go-p2plink/pkg/types"
)

// 协议版本
const ProtocolVersion = 1

// RPC 方法名
const (
	MethodHello                      = "Hello"
	MethodFindAdvertisedName         = "FindAdvertisedName"
	MethodCancelFindAdvertisedName   = "CancelFindAdvertisedName"
	MethodAdvertiseName              = "AdvertiseName"
	MethodCancelAdvertiseName        = "CancelAdvertiseName"
	MethodEstablishLink              = "EstablishLink"
	MethodReleaseLink                = "ReleaseLink"
	MethodGetInterfaceNameFromHandle = "GetInterfaceNameFromHandle"
)

// Message 通道消息
type Message struct {
	ID         uint64          `json:"id,omitempty"`
	Method     string          `json:"method,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	IsResponse bool            `json:"is_response,omitempty"`
}

// HelloParams Hello 参数
type HelloParams struct {
	Session string `json:"session"`
	Version int    `json:"version"`
}

// NameParams 名称类请求参数
type NameParams struct {
	NamePrefix string `json:"name_prefix,omitempty"`
	Name       string `json:"name,omitempty"`
	GUID       string `json:"guid,omitempty"`
}

// EstablishParams EstablishLink 参数
type EstablishParams struct {
	Device           string `json:"device"`
	GroupOwnerIntent int    `json:"group_owner_intent"`
}

// HandleParams 句柄类请求参数
type HandleParams struct {
	Handle int32 `json:"handle"`
}

// SignalParams 信号参数
type SignalParams struct {
	Name          string `json:"name,omitempty"`
	NamePrefix    string `json:"name_prefix,omitempty"`
	GUID          string `json:"guid,omitempty"`
	Device        string `json:"device,omitempty"`
	Handle        int32  `json:"handle,omitempty"`
	InterfaceName string `json:"interface_name,omitempty"`
	Code          int32  `json:"code,omitempty"`
}

// signalMessage 将信号编码为单向消息，方法名即信号名
func signalMessage(sig types.Signal) (*Message, error) {
	params, err := json.Marshal(SignalParams{
		Name:          sig.Name,
		NamePrefix:    sig.NamePrefix,
		GUID:          sig.GUID,
		Device:        string(sig.Device),
		Handle:        int32(sig.Handle),
		InterfaceName: sig.InterfaceName,
		Code:          int32(sig.Code),
	})
	if err != nil {
		return nil, err
	}
	return &Message{Method: sig.Kind.String(), Params: params}, nil
}
