package objectkey

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for the described file
	GenerateKey(metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	FileName    string
	ContentType string
	RouteName   string

	// Prefix is the already-joined global + route prefix. Generators
	// append their suffix under it.
	Prefix string
}

// UUIDGenerator produces flat keys: {prefix}/{uuid}_{filename}
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) GenerateKey(metadata *KeyMetadata) string {
	id := uuid.New().String()
	suffix := id
	if metadata != nil && metadata.FileName != "" {
		suffix = fmt.Sprintf("%s_%s", id, SanitizeFilename(metadata.FileName))
	}
	return joinPrefix(metadata, suffix)
}

// ShardedGenerator provides Git-style sharded keys off a random UUID:
// {prefix}/ab/cd1234ef5678_filename
type ShardedGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{
		ShardLength: 2,
	}
}

func (g *ShardedGenerator) GenerateKey(metadata *KeyMetadata) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")

	shardLen := g.ShardLength
	if shardLen <= 0 || shardLen >= len(id) {
		shardLen = 2
	}

	shardDir := id[:shardLen]
	remaining := id[shardLen:]

	filename := remaining
	if metadata != nil && metadata.FileName != "" {
		filename = fmt.Sprintf("%s_%s", remaining, SanitizeFilename(metadata.FileName))
	}

	return joinPrefix(metadata, fmt.Sprintf("%s/%s", shardDir, filename))
}

// HashedGenerator derives the key deterministically from the file identity.
// Identical (route, name, size, type) inputs produce identical keys, which
// makes uploads idempotent at the storage layer.
type HashedGenerator struct {
	ShardLength int
}

func NewHashedGenerator() *HashedGenerator {
	return &HashedGenerator{
		ShardLength: 2,
	}
}

func (g *HashedGenerator) GenerateKey(metadata *KeyMetadata) string {
	var route, name, ctype string
	if metadata != nil {
		route, name, ctype = metadata.RouteName, metadata.FileName, metadata.ContentType
	}
	hash := sha256.Sum256([]byte(route + "\x00" + name + "\x00" + ctype))
	hashStr := fmt.Sprintf("%x", hash)

	shardLen := g.ShardLength
	if shardLen <= 0 || shardLen >= 16 {
		shardLen = 2
	}

	shardDir := hashStr[:shardLen]
	remaining := hashStr[shardLen:16]

	filename := remaining
	if name != "" {
		filename = fmt.Sprintf("%s_%s", remaining, SanitizeFilename(name))
	}

	return joinPrefix(metadata, fmt.Sprintf("%s/%s", shardDir, filename))
}

// CustomFuncGenerator allows users to provide their own key generation function
type CustomFuncGenerator struct {
	GenerateFunc func(metadata *KeyMetadata) string
}

func NewCustomFuncGenerator(fn func(metadata *KeyMetadata) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{
		GenerateFunc: fn,
	}
}

func (g *CustomFuncGenerator) GenerateKey(metadata *KeyMetadata) string {
	return g.GenerateFunc(metadata)
}

// NewRecommendedGenerator returns the recommended generator for new installations
func NewRecommendedGenerator() Generator {
	return NewShardedGenerator()
}

func joinPrefix(metadata *KeyMetadata, suffix string) string {
	if metadata == nil || metadata.Prefix == "" {
		return suffix
	}
	return strings.TrimSuffix(metadata.Prefix, "/") + "/" + suffix
}

// SanitizeFilename replaces characters that are problematic in object keys
// and filesystem paths.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(filename)
}

// SanitizePathComponent lowercases and sanitizes a path segment such as a
// route name used as a key prefix.
func SanitizePathComponent(component string) string {
	return strings.ToLower(SanitizeFilename(component))
}
