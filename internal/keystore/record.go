package keystore

// Type identifies which hierarchy produced a record's secret (spec.md §3).
type Type string

const (
	TypeMnemonic     Type = "Mnemonic"
	TypePrivateKey   Type = "PrivateKey"
	TypeShieldedKeys Type = "ShieldedKeys"
)

// Path is the clear-text derivation-path tuple stored on every record.
// Parent records always carry {Account: 0, Change: 0}; shielded records
// carry only Index.
type Path struct {
	Account  uint32 `json:"account"`
	Change   uint32 `json:"change"`
	Index    uint32 `json:"index"`
	HasIndex bool   `json:"hasIndex"`
}

// Record is the unit of persistence (spec.md §3): everything but Crypto is
// plaintext metadata safe to return from query operations.
type Record struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId,omitempty"`
	Alias    string `json:"alias"`
	ChainID  string `json:"chainId"`
	Path     Path   `json:"path"`
	Type     Type   `json:"type"`
	Address  string `json:"address"`
	Owner    string `json:"owner"`
	Crypto   []byte `json:"crypto"`
}

// Public is a Record with Crypto stripped, the shape query operations
// return (spec.md §4.5: "stripped of crypto").
type Public struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId,omitempty"`
	Alias    string `json:"alias"`
	ChainID  string `json:"chainId"`
	Path     Path   `json:"path"`
	Type     Type   `json:"type"`
	Address  string `json:"address"`
	Owner    string `json:"owner"`
}

func (r Record) toPublic() Public {
	return Public{
		ID:       r.ID,
		ParentID: r.ParentID,
		Alias:    r.Alias,
		ChainID:  r.ChainID,
		Path:     r.Path,
		Type:     r.Type,
		Address:  r.Address,
		Owner:    r.Owner,
	}
}

// ShieldedSecret is the JSON payload encrypted inside a shielded child
// record's Crypto blob (spec.md §4.3: `{"spendingKey": ..., "viewingKey": ...}`).
type ShieldedSecret struct {
	SpendingKey string `json:"spendingKey"`
	ViewingKey  string `json:"viewingKey"`
}
