package money

import (
	"fmt"
	"sync"
)

// Asset represents a currency or token with its properties.
type Asset struct {
	Code     string // Asset code (USD, USDC, etc.)
	Decimals uint8  // Number of decimal places (2 for USD, 6 for USDC)
	Type     AssetType
	Metadata AssetMetadata
}

// AssetType categorizes the asset for different backends.
type AssetType int

const (
	AssetTypeFiat AssetType = iota // display-only fiat (quotes, receipts)
	AssetTypeERC20                 // EVM ERC-20 token
)

// AssetMetadata contains backend-specific information.
type AssetMetadata struct {
	// ContractsByNetwork maps a CAIP-2 network id (e.g. "eip155:8453") to the
	// token's contract address on that network. USDC's address differs per
	// chain, so this is keyed rather than a single global address.
	ContractsByNetwork map[string]string
}

// Global asset registry with concurrent access protection
var (
	assetRegistry = map[string]Asset{
		"USD": {
			Code:     "USD",
			Decimals: 2,
			Type:     AssetTypeFiat,
		},
		"USDC": {
			Code:     "USDC",
			Decimals: 6, // micro-USDC, matches USDC's on-chain decimals
			Type:     AssetTypeERC20,
			Metadata: AssetMetadata{
				ContractsByNetwork: map[string]string{
					"eip155:1":     "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", // Ethereum mainnet
					"eip155:8453":  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", // Base mainnet
					"eip155:84532": "0x036CbD53842c5426634e7929541eC2318f3dCF7e", // Base Sepolia
					"eip155:137":   "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", // Polygon
				},
			},
		},
	}
	assetRegistryMu sync.RWMutex
)

// GetAsset retrieves an asset from the registry.
func GetAsset(code string) (Asset, error) {
	assetRegistryMu.RLock()
	asset, ok := assetRegistry[code]
	assetRegistryMu.RUnlock()

	if !ok {
		return Asset{}, fmt.Errorf("money: unknown asset: %s", code)
	}
	return asset, nil
}

// MustGetAsset retrieves an asset and panics if not found (for tests/constants).
func MustGetAsset(code string) Asset {
	asset, err := GetAsset(code)
	if err != nil {
		panic(err)
	}
	return asset
}

// RegisterAsset adds a new asset to the registry (for testing or dynamic tokens).
func RegisterAsset(asset Asset) error {
	if asset.Code == "" {
		return fmt.Errorf("money: asset code required")
	}
	if asset.Decimals > 18 {
		return fmt.Errorf("money: decimals must be <= 18")
	}

	assetRegistryMu.Lock()
	assetRegistry[asset.Code] = asset
	assetRegistryMu.Unlock()

	return nil
}

// ListAssets returns all registered assets.
func ListAssets() []Asset {
	assetRegistryMu.RLock()
	assets := make([]Asset, 0, len(assetRegistry))
	for _, asset := range assetRegistry {
		assets = append(assets, asset)
	}
	assetRegistryMu.RUnlock()

	return assets
}

// IsFiat returns true if the asset is a display-only fiat currency.
func (a Asset) IsFiat() bool {
	return a.Type == AssetTypeFiat
}

// IsERC20 returns true if the asset is an EVM ERC-20 token.
func (a Asset) IsERC20() bool {
	return a.Type == AssetTypeERC20
}

// ContractAddress returns the token's contract address on the given CAIP-2
// network, or an error if the asset has no deployment there.
func (a Asset) ContractAddress(network string) (string, error) {
	if !a.IsERC20() {
		return "", fmt.Errorf("money: %s is not an ERC-20 token", a.Code)
	}
	addr, ok := a.Metadata.ContractsByNetwork[network]
	if !ok {
		return "", fmt.Errorf("money: %s has no known contract on network %s", a.Code, network)
	}
	return addr, nil
}
