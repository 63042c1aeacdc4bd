package dwn

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// DuplicateStream splits src into two independent full readers — not a
// tee reused as both the copy source and the second consumer, since
// draining a tee to feed one pipe also drains the underlying reader,
// leaving nothing behind for the other — so a caller can compute a
// content identifier over one while the other is still available for
// processing, preserving the ordering guarantee that CID computation
// happens before consumption.
func DuplicateStream(src io.Reader) (forCID io.Reader, forProcessing io.Reader) {
	content, err := io.ReadAll(src)
	if err != nil {
		pr, pw := io.Pipe()
		pw.CloseWithError(err)
		return pr, pr
	}
	return bytes.NewReader(content), bytes.NewReader(content)
}

// cidBuilder produces DAG-PB-style CIDv1s (codec 0x70, sha2-256
// multihash) as the content-addressed identifier over a stream.
var cidBuilder = cid.V1Builder{Codec: cid.DagProtobuf, MhType: multihash.SHA2_256}

// ComputeCID hashes data in full and returns its CID string plus the byte
// count read, since RecordsWrite needs both dataCid and dataSize.
func ComputeCID(data io.Reader) (cidString string, size int64, err error) {
	content, err := io.ReadAll(data)
	if err != nil {
		return "", 0, errCidComputation(err)
	}
	c, err := cidBuilder.Sum(content)
	if err != nil {
		return "", 0, errCidComputation(err)
	}
	return c.String(), int64(len(content)), nil
}

// ComputeMessageCID computes the CID of a fully-constructed message,
// the messageCid returned alongside every processRequest reply.
func ComputeMessageCID(msg Message) (string, error) {
	canonical, err := json.Marshal(msg)
	if err != nil {
		return "", errCidComputation(err)
	}
	c, err := cidBuilder.Sum(canonical)
	if err != nil {
		return "", errCidComputation(err)
	}
	return c.String(), nil
}
