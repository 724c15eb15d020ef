// Package evm decodes the EVM encodings found in explorer payloads:
// addresses, indexed topics and ABI words of event data.
package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// wordSize is the size of one ABI-encoded word.
const wordSize = 32

// NormalizeAddress returns the canonical lower-case form of a hex address.
func NormalizeAddress(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", false
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), true
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// IsZeroAddress reports whether addr is the zero address.
func IsZeroAddress(addr string) bool {
	return common.HexToAddress(addr) == (common.Address{})
}

// TopicAddress extracts the address held in the last 20 bytes of an
// indexed topic. The zero address is rejected.
func TopicAddress(topic string) (string, bool) {
	b := common.FromHex(strings.TrimSpace(topic))
	if len(b) != common.HashLength {
		return "", false
	}
	addr := common.BytesToAddress(b[common.HashLength-common.AddressLength:])
	if addr == (common.Address{}) {
		return "", false
	}
	return strings.ToLower(addr.Hex()), true
}

// DataWordAddress extracts the address held in the given 32-byte word of an
// event data payload. The zero address is rejected.
func DataWordAddress(data string, word int) (string, bool) {
	b := common.FromHex(strings.TrimSpace(data))
	start := word * wordSize
	if word < 0 || len(b) < start+wordSize {
		return "", false
	}
	addr := common.BytesToAddress(b[start+wordSize-common.AddressLength : start+wordSize])
	if addr == (common.Address{}) {
		return "", false
	}
	return strings.ToLower(addr.Hex()), true
}

// EventTopic returns the topic hash of an event. It accepts either a full
// signature such as "Transfer(address,address,uint256)" or a 0x-prefixed
// 32-byte topic hash.
func EventTopic(event string) common.Hash {
	event = strings.TrimSpace(event)
	if strings.HasPrefix(event, "0x") && len(event) == 2+2*common.HashLength {
		return common.HexToHash(event)
	}
	return crypto.Keccak256Hash([]byte(strings.ReplaceAll(event, " ", "")))
}

// ShortAddress renders "0x1234...abcd" for display fallbacks.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
