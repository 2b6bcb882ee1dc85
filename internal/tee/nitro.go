package tee

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/hf/nsm"
	"github.com/hf/nsm/request"

	"github.com/FSM1/cipher-box-sub011/internal/crypto"
)

// NitroDeriver is the hardware backend: epoch keys are derived from a
// master seed provisioned into the enclave, salted with the Nitro Security
// Module's stable module identifier. The same sealed seed produces different
// keys on different enclaves, which is what scopes delegation to one
// deployment.
type NitroDeriver struct {
	seed     *crypto.Secret
	moduleID string
}

// NewNitroDeriver takes ownership of the unsealed master seed and binds it
// to the local NSM identity. Fails outside a Nitro enclave.
func NewNitroDeriver(seed []byte) (*NitroDeriver, error) {
	if len(seed) < 32 {
		return nil, errors.New("tee: enclave master seed too short")
	}
	sess, err := nsm.OpenDefaultSession()
	if err != nil {
		return nil, fmt.Errorf("tee: open nsm session: %w", err)
	}
	defer sess.Close()

	res, err := sess.Send(&request.DescribeNSM{})
	if err != nil {
		return nil, fmt.Errorf("tee: describe nsm: %w", err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("tee: describe nsm: %s", res.Error)
	}
	if res.DescribeNSM == nil || res.DescribeNSM.ModuleID == "" {
		return nil, errors.New("tee: nsm returned no module identity")
	}

	return &NitroDeriver{
		seed:     crypto.NewSecretCopy(seed),
		moduleID: res.DescribeNSM.ModuleID,
	}, nil
}

func (d *NitroDeriver) Keypair(epoch uint64) (*btcec.PrivateKey, *btcec.PublicKey, error) {
	raw, err := crypto.DeriveKey(d.seed.Bytes(), []byte(d.moduleID), epochInfo(epoch), 32)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.Zero(raw)
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv, priv.PubKey(), nil
}

// Close wipes the master seed.
func (d *NitroDeriver) Close() {
	d.seed.Wipe()
}
