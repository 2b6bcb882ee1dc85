package server

type healthResponse struct {
	Healthy bool   `json:"healthy"`
	Epoch   uint64 `json:"epoch"`
}

type publicKeyResponse struct {
	Epoch        uint64 `json:"epoch"`
	PublicKeyHex string `json:"publicKeyHex"`
}

type republishRequest struct {
	Entries []republishEntry `json:"entries"`
}

// Sequence numbers travel as decimal strings so u64 values survive JSON
// consumers with float64 numbers.
type republishEntry struct {
	IPNSName         string  `json:"ipnsName"`
	EncryptedIPNSKey string  `json:"encryptedIpnsKey"`
	KeyEpoch         uint64  `json:"keyEpoch"`
	LatestCID        string  `json:"latestCid"`
	SequenceNumber   string  `json:"sequenceNumber"`
	CurrentEpoch     uint64  `json:"currentEpoch"`
	PreviousEpoch    *uint64 `json:"previousEpoch,omitempty"`
}

type republishResponse struct {
	Results []republishResult `json:"results"`
}

type republishResult struct {
	IPNSName             string `json:"ipnsName"`
	Success              bool   `json:"success"`
	SignedRecord         string `json:"signedRecord,omitempty"`
	NewSequenceNumber    string `json:"newSequenceNumber,omitempty"`
	UpgradedEncryptedKey string `json:"upgradedEncryptedKey,omitempty"`
	UpgradedKeyEpoch     uint64 `json:"upgradedKeyEpoch,omitempty"`
	Error                string `json:"error,omitempty"`
}
