package dwn

import "encoding/json"

// marshalCanonical is the byte representation a message's authorization
// signature covers.
func marshalCanonical(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Descriptor is the self-describing header every message carries:
// interface, method, and the protocol/context plumbing around them.
type Descriptor struct {
	Interface    string `json:"interface"`
	Method       string `json:"method"`
	Protocol     string `json:"protocol,omitempty"`
	ProtocolPath string `json:"protocolPath,omitempty"`
	ContextID    string `json:"contextId,omitempty"`
	ParentID     string `json:"parentId,omitempty"`
	DataCid      string `json:"dataCid,omitempty"`
	DataSize     int64  `json:"dataSize,omitempty"`
}

// Authorization is the signature block attached to a constructed message.
type Authorization struct {
	SignerKeyURI string `json:"signerKeyUri"`
	Signature    []byte `json:"signature"`
}

// OwnerAuthorization is the additional tenant-owner signature applied to
// a RecordsWrite when signAsOwner is requested.
type OwnerAuthorization struct {
	OwnerKeyURI string `json:"ownerKeyUri"`
	Signature   []byte `json:"signature"`
}

// Message is the envelope every interface/method constructor produces.
// Tags and Data are free-form payload: messages are self-describing
// objects rather than a closed schema.
type Message struct {
	RecordID      string                 `json:"recordId,omitempty"`
	Descriptor    Descriptor             `json:"descriptor"`
	Tags          map[string]string      `json:"tags,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Data          []byte                 `json:"data,omitempty"`
	Authorization Authorization          `json:"authorization"`
	OwnerAuth     *OwnerAuthorization    `json:"ownerAuthorization,omitempty"`
}

// MessageParams is the input to a message constructor: descriptor fields
// plus payload/tags, everything processRequest assembles before signing.
type MessageParams struct {
	Protocol     string
	ProtocolPath string
	ContextID    string
	ParentID     string
	Tags         map[string]string
	Payload      map[string]interface{}
	Data         []byte
	DataCid      string
	DataSize     int64
}

// interfaceMethod is the {interface, method} pair identifying one of the
// message kinds: Records{Write,Read,Query,Delete,Subscribe},
// Protocols{Configure,Query}, Messages{Get}, Events{Get,Query,Subscribe}.
type interfaceMethod struct{ iface, method string }

var (
	RecordsWrite     = interfaceMethod{"Records", "Write"}
	RecordsRead      = interfaceMethod{"Records", "Read"}
	RecordsQuery     = interfaceMethod{"Records", "Query"}
	RecordsDelete    = interfaceMethod{"Records", "Delete"}
	RecordsSubscribe = interfaceMethod{"Records", "Subscribe"}

	ProtocolsConfigure = interfaceMethod{"Protocols", "Configure"}
	ProtocolsQuery     = interfaceMethod{"Protocols", "Query"}

	MessagesGet = interfaceMethod{"Messages", "Get"}

	EventsGet       = interfaceMethod{"Events", "Get"}
	EventsQuery     = interfaceMethod{"Events", "Query"}
	EventsSubscribe = interfaceMethod{"Events", "Subscribe"}
)

// MessageType returns the "Records" + "Write" style concatenation used
// throughout the permissions grant matching algorithm.
func (im interfaceMethod) MessageType() string { return im.iface + im.method }

// Construct builds an unsigned Message for the given interface/method and
// params; signing is applied by the caller (normally processRequest)
// afterward, since the signature must cover the fully-assembled
// descriptor including any dataCid/dataSize set by CID computation.
func Construct(im interfaceMethod, params MessageParams) Message {
	return Message{
		Descriptor: Descriptor{
			Interface:    im.iface,
			Method:       im.method,
			Protocol:     params.Protocol,
			ProtocolPath: params.ProtocolPath,
			ContextID:    params.ContextID,
			ParentID:     params.ParentID,
			DataCid:      params.DataCid,
			DataSize:     params.DataSize,
		},
		Tags:    params.Tags,
		Payload: params.Payload,
		Data:    params.Data,
	}
}

// Parse returns a raw message unchanged; constructors in this package
// produce the same Message shape a remote peer would send, so parsing a
// message this core already serialized is the identity function. A real
// wire format (JSON, CBOR, …) would replace this with actual decoding.
func Parse(raw Message) (Message, error) {
	if raw.Descriptor.Interface == "" || raw.Descriptor.Method == "" {
		return Message{}, errInvalidMessage("message missing descriptor.interface/method", nil)
	}
	return raw, nil
}
