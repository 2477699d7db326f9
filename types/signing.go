package types

import (
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/ethereum/go-ethereum/common"
	ssz "github.com/ferranbt/fastssz"
	"github.com/pkg/errors"
)

// ForkData is hashed into signature domains to separate forks and chains.
type ForkData struct {
	CurrentVersion        config.Version
	GenesisValidatorsRoot common.Hash
}

func (f *ForkData) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(f)
}

func (f *ForkData) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutBytes(f.CurrentVersion[:])
	hh.PutBytes(f.GenesisValidatorsRoot[:])
	hh.Merkleize(indx)
	return nil
}

// SigningData binds an object root to a domain.
type SigningData struct {
	ObjectRoot common.Hash
	Domain     Domain
}

func (s *SigningData) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(s)
}

func (s *SigningData) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutBytes(s.ObjectRoot[:])
	hh.PutBytes(s.Domain[:])
	hh.Merkleize(indx)
	return nil
}

type hashRoot interface {
	HashTreeRoot() ([32]byte, error)
}

// computeForkDataRoot implements compute_fork_data_root.
func computeForkDataRoot(version config.Version, genesisValidatorsRoot common.Hash) (common.Hash, error) {
	root, err := (&ForkData{
		CurrentVersion:        version,
		GenesisValidatorsRoot: genesisValidatorsRoot,
	}).HashTreeRoot()
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "could not hash fork data")
	}
	return root, nil
}

// ComputeDomain implements compute_domain.
func ComputeDomain(domainType config.DomainType, forkVersion config.Version, genesisValidatorsRoot common.Hash) (Domain, error) {
	forkDataRoot, err := computeForkDataRoot(forkVersion, genesisValidatorsRoot)
	if err != nil {
		return Domain{}, err
	}
	var domain Domain
	copy(domain[:4], domainType[:])
	copy(domain[4:], forkDataRoot[:28])
	return domain, nil
}

// ComputeSigningRoot implements compute_signing_root.
func ComputeSigningRoot(object hashRoot, domain Domain) (common.Hash, error) {
	objectRoot, err := object.HashTreeRoot()
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "could not hash signed object")
	}
	root, err := (&SigningData{
		ObjectRoot: objectRoot,
		Domain:     domain,
	}).HashTreeRoot()
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "could not hash signing data")
	}
	return root, nil
}

// SyncCommitteeSigningRoot is the message a sync committee signs for the
// attested header.
func SyncCommitteeSigningRoot(cfg *config.Config, header *BeaconBlockHeader, genesisValidatorsRoot common.Hash) (common.Hash, error) {
	forkVersion := cfg.ForkVersion(cfg.EpochAtSlot(header.Slot))
	domain, err := ComputeDomain(cfg.DomainSyncCommittee, forkVersion, genesisValidatorsRoot)
	if err != nil {
		return common.Hash{}, err
	}
	return ComputeSigningRoot(header, domain)
}
