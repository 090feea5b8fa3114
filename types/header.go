package types

import (
	"github.com/colorfulnotion/cellvm/common"
	"github.com/holiman/uint256"
)

// Header is the chain tip as reported by get_tip_header.
type Header struct {
	Version       uint32       `json:"version"`
	ParentHash    common.Hash  `json:"parent_hash"`
	Timestamp     uint64       `json:"timestamp"`
	Number        uint64       `json:"number"`
	TxsCommit     common.Hash  `json:"txs_commit"`
	ProposalsRoot common.Hash  `json:"proposals_root"`
	Difficulty    *uint256.Int `json:"difficulty"`
	CellbaseID    common.Hash  `json:"cellbase_id"`
	UnclesHash    common.Hash  `json:"uncles_hash"`
	// RemoteHash is the hash echoed by the node; it is not part of the preimage.
	RemoteHash common.Hash `json:"hash" codec:"-"`
}

// Hash is the blake2b digest of the encoded header fields.
func (h *Header) Hash() (common.Hash, error) {
	b, err := codecEncode(*h)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Blake2Hash(b), nil
}
