package dwn

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/blackhole-pro/agentcore/internal/keymanager"
)

// Signer binds sign to a specific key manager entry, mirroring
// internal/did.Signer's shape without importing the did package (which
// would create an import cycle: did resolution is itself a consumer of a
// constructed signer in some deployments, but the pipeline only needs the
// narrow sign capability).
type Signer struct {
	KeyURI string
	KM     *keymanager.Manager
}

// Sign signs data with the key manager entry for KeyURI, translating the
// key manager's generic "no stored entry" error into this package's own
// KindKeyNotInKeyManager rather than letting it leak through unwrapped —
// a caller catching dwn errors by Kind should never have to also know
// about keymanager.Kind to recognize the same underlying cause.
func (s Signer) Sign(data []byte) ([]byte, error) {
	sig, err := s.KM.Sign(s.KeyURI, data)
	if err != nil {
		var kmErr *keymanager.Error
		if errors.As(err, &kmErr) && kmErr.Kind == keymanager.KindKeyNotFound {
			return nil, errKeyNotInKeyManager(s.KeyURI)
		}
		return nil, err
	}
	return sig, nil
}

// SignerResolver resolves a signer for an author DID. The agent facade
// supplies an implementation that special-cases the agent's own DID
// (vault signer) and otherwise resolves via the DID subsystem.
type SignerResolver interface {
	ResolveSigner(author string) (Signer, error)
}

// DWN is the external durable store / processing peer this core
// dispatches constructed messages to when a request asks to be stored.
type DWN interface {
	ProcessMessage(ctx context.Context, target string, msg Message, dataStream io.Reader) (Reply, error)
}

// Reply is the {status, ...} response a DWN or RPC peer returns; 202,
// 200, 404, 401 and 409 are all represented by Reply.Status.
type Reply struct {
	Status  Status                 `json:"status"`
	Entries []Message              `json:"entries,omitempty"`
	Record  map[string]interface{} `json:"record,omitempty"`
}

// Status is the {code, detail} pair DWN replies are reported with.
type Status struct {
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

// Request is the input to ProcessRequest.
type Request struct {
	Author              string
	Target              string
	MessageType         interfaceMethod
	MessageParams       MessageParams
	RawMessage          *Message
	DataStream          io.Reader
	Store               *bool // nil defaults to true
	SignAsOwner         bool
	OwnerKeyURI         string
	SubscriptionHandler func(Message)
}

func (r Request) shouldStore() bool {
	return r.Store == nil || *r.Store
}

// Result is ProcessRequest's output: {reply, message, messageCid}.
type Result struct {
	Reply      Reply
	Message    Message
	MessageCid string
}

// Pipeline runs processRequest against a DWN (or, when that DWN is a
// RemoteDWN, against a remote RPC peer).
type Pipeline struct {
	log      *zap.Logger
	signers  SignerResolver
	dwn      DWN
	agentDid string
}

// NewPipeline constructs a Pipeline. agentDid is recorded on the Pipeline
// but not consulted by ProcessRequest: every author, the agent's own DID
// included, is resolved through signers.
func NewPipeline(log *zap.Logger, signers SignerResolver, store DWN, agentDid string) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		log:      log.With(zap.String("component", "dwn.pipeline")),
		signers:  signers,
		dwn:      store,
		agentDid: agentDid,
	}
}

// ProcessRequest runs a request through signer resolution, message
// construction, CID computation, signing, optional storage dispatch, and
// reply assembly.
func (p *Pipeline) ProcessRequest(ctx context.Context, req Request) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, errCancelled()
	default:
	}

	params := req.MessageParams

	// Step 1: split the stream and compute a CID before any consumption,
	// but only for RecordsWrite with a stream and no pre-supplied data.
	if req.MessageType == RecordsWrite && req.DataStream != nil && params.Data == nil {
		forCID, forProcessing := DuplicateStream(req.DataStream)
		cidStr, size, err := ComputeCID(forCID)
		if err != nil {
			return Result{}, err
		}
		params.DataCid = cidStr
		params.DataSize = size
		req.DataStream = forProcessing
	}

	// Step 2: resolve a signer for the author.
	signer, err := p.signers.ResolveSigner(req.Author)
	if err != nil {
		return Result{}, err
	}

	// Step 3: build the message.
	var msg Message
	if req.RawMessage != nil {
		msg, err = Parse(*req.RawMessage)
		if err != nil {
			return Result{}, err
		}
	} else {
		msg = Construct(req.MessageType, params)
	}

	sig, err := signer.Sign(signingPayload(msg))
	if err != nil {
		return Result{}, err
	}
	msg.Authorization = Authorization{SignerKeyURI: signer.KeyURI, Signature: sig}

	// Step 4: optional owner signature for RecordsWrite.
	if req.MessageType == RecordsWrite && req.SignAsOwner {
		ownerSigner := signer
		if req.OwnerKeyURI != "" {
			ownerSigner = Signer{KeyURI: req.OwnerKeyURI, KM: signer.KM}
		}
		ownerSig, err := ownerSigner.Sign(signingPayload(msg))
		if err != nil {
			return Result{}, err
		}
		msg.OwnerAuth = &OwnerAuthorization{OwnerKeyURI: ownerSigner.KeyURI, Signature: ownerSig}
	}

	select {
	case <-ctx.Done():
		return Result{}, errCancelled()
	default:
	}

	// Step 5: dispatch or synthesize 202.
	var reply Reply
	if req.shouldStore() {
		reply, err = p.dwn.ProcessMessage(ctx, req.Target, msg, req.DataStream)
		if err != nil {
			return Result{}, err
		}
	} else {
		reply = Reply{Status: Status{Code: 202, Detail: "Accepted"}}
	}

	// Step 6.
	messageCid, err := ComputeMessageCID(msg)
	if err != nil {
		return Result{}, err
	}
	return Result{Reply: reply, Message: msg, MessageCid: messageCid}, nil
}

// signingPayload is the canonical bytes the authorization signature
// covers: the descriptor plus payload/tags, but not the signature itself.
func signingPayload(msg Message) []byte {
	unsigned := msg
	unsigned.Authorization = Authorization{}
	unsigned.OwnerAuth = nil
	raw, _ := marshalCanonical(unsigned)
	return raw
}
