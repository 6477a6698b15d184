package bundle

import (
	"encoding/binary"
	"fmt"
)

// ObjectKind identifies the Unity object types the extractor understands.
// Every other object type in the container is skipped.
type ObjectKind int

const (
	KindOther ObjectKind = iota
	KindAudioClip
	KindTexture2D
	KindSprite
)

// Object is one entry from an AssetBundle's object directory, with its
// payload already decompressed.
type Object struct {
	Name string
	Kind ObjectKind
	Data []byte
}

// bundle container layout constants for the single-node, LZ4AK-compressed
// shape this game's AssetBundles use.
const (
	signatureUnityFS = "UnityFS"
	headerMinLen      = 20
)

// Reader walks a decompressed AssetBundle's block-and-directory structure
// and yields its objects. It owns no file handle; callers read the whole
// bundle into memory first (bundles in this game are a few MB at most).
type Reader struct {
	objects []Object
}

// Open parses the bundle held in data, decompressing its blocks-and-
// directory info and every compressed data block with the LZ4AK codec
// from lz4ak.go. It returns a malformed-stream *DecodeError if the
// container is truncated or its declared sizes don't check out, and a
// bounds-violation *DecodeError if a directory node reaches past the
// assembled data.
func Open(data []byte) (*Reader, error) {
	if len(data) < headerMinLen || string(data[:len(signatureUnityFS)]) != signatureUnityFS {
		return nil, &DecodeError{Kind: ErrKindMalformedStream, Msg: "missing UnityFS signature"}
	}

	h, rest, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	blocksInfo, err := decompressSection(rest[:h.compressedBlocksInfoSize], int(h.uncompressedBlocksInfoSize))
	if err != nil {
		return nil, err
	}

	dirInfo, err := parseBlocksAndDirectory(blocksInfo)
	if err != nil {
		return nil, err
	}

	dataStart := rest[h.compressedBlocksInfoSize:]
	flat, err := assembleBlocks(dataStart, dirInfo.blocks)
	if err != nil {
		return nil, err
	}

	objects := make([]Object, 0, len(dirInfo.nodes))
	for _, n := range dirInfo.nodes {
		if n.offset+n.size > int64(len(flat)) {
			return nil, &DecodeError{Kind: ErrKindBoundsViolation, Msg: fmt.Sprintf("node %q exceeds assembled data", n.path)}
		}
		objects = append(objects, Object{
			Name: n.path,
			Kind: classifyNode(n.path, n.typeID),
			Data: flat[n.offset : n.offset+n.size],
		})
	}

	return &Reader{objects: objects}, nil
}

// Objects returns every decompressed object in the bundle, in directory
// order.
func (r *Reader) Objects() []Object { return r.objects }

// AudioClips returns only the AudioClip objects.
func (r *Reader) AudioClips() []Object {
	return r.filter(KindAudioClip)
}

// Images returns Texture2D and Sprite objects.
func (r *Reader) Images() []Object {
	var out []Object
	for _, o := range r.objects {
		if o.Kind == KindTexture2D || o.Kind == KindSprite {
			out = append(out, o)
		}
	}
	return out
}

func (r *Reader) filter(k ObjectKind) []Object {
	var out []Object
	for _, o := range r.objects {
		if o.Kind == k {
			out = append(out, o)
		}
	}
	return out
}

type header struct {
	compressedBlocksInfoSize   int64
	uncompressedBlocksInfoSize int64
}

// parseHeader reads the fixed UnityFS prefix plus the two 32-bit size
// fields blocks-info decompression needs. The full Unity header also
// carries version strings; this extractor only needs the sizes to locate
// and inflate blocks-info.
func parseHeader(data []byte) (header, []byte, error) {
	pos := 0
	for pos < len(data) && data[pos] != 0 {
		pos++
	}
	pos++ // signature NUL terminator
	pos += 4 // format version (uint32)
	for i := 0; i < 2; i++ { // unityVersion, unityRevision, both NUL-terminated strings
		start := pos
		for pos < len(data) && data[pos] != 0 {
			pos++
		}
		pos++
		_ = start
	}
	if pos+20 > len(data) {
		return header{}, nil, &DecodeError{Kind: ErrKindMalformedStream, Msg: "truncated bundle header"}
	}
	pos += 8 // total file size (int64)
	compressedSize := int64(binary.BigEndian.Uint32(data[pos:]))
	pos += 4
	uncompressedSize := int64(binary.BigEndian.Uint32(data[pos:]))
	pos += 4
	pos += 4 // flags

	if pos+int(compressedSize) > len(data) {
		return header{}, nil, &DecodeError{Kind: ErrKindMalformedStream, Msg: "blocks-info exceeds bundle length"}
	}

	return header{
		compressedBlocksInfoSize:   compressedSize,
		uncompressedBlocksInfoSize: uncompressedSize,
	}, data[pos:], nil
}

func decompressSection(compressed []byte, uncompressedSize int) ([]byte, error) {
	// An owned copy: Decode mutates its input in place.
	owned := make([]byte, len(compressed))
	copy(owned, compressed)
	return Decode(owned, uncompressedSize)
}

type blockInfo struct {
	compressedSize   int64
	uncompressedSize int64
}

type nodeInfo struct {
	offset int64
	size   int64
	typeID int32
	path   string
}

type directoryInfo struct {
	blocks []blockInfo
	nodes  []nodeInfo
}

// parseBlocksAndDirectory reads the decompressed blocks-info document: a
// hash, a block count and table, a node count and table.
func parseBlocksAndDirectory(buf []byte) (directoryInfo, error) {
	pos := 16 // 128-bit content hash, opaque to this reader
	if pos > len(buf) {
		return directoryInfo{}, &DecodeError{Kind: ErrKindMalformedStream, Msg: "truncated blocks-info hash"}
	}

	if pos+4 > len(buf) {
		return directoryInfo{}, &DecodeError{Kind: ErrKindMalformedStream, Msg: "truncated block count"}
	}
	blockCount := binary.BigEndian.Uint32(buf[pos:])
	pos += 4

	blocks := make([]blockInfo, 0, blockCount)
	for i := uint32(0); i < blockCount; i++ {
		if pos+10 > len(buf) {
			return directoryInfo{}, &DecodeError{Kind: ErrKindMalformedStream, Msg: "truncated block table"}
		}
		uncompressed := binary.BigEndian.Uint32(buf[pos:])
		pos += 4
		compressed := binary.BigEndian.Uint32(buf[pos:])
		pos += 4
		pos += 2 // block flags
		blocks = append(blocks, blockInfo{
			compressedSize:   int64(compressed),
			uncompressedSize: int64(uncompressed),
		})
	}

	if pos+4 > len(buf) {
		return directoryInfo{}, &DecodeError{Kind: ErrKindMalformedStream, Msg: "truncated node count"}
	}
	nodeCount := binary.BigEndian.Uint32(buf[pos:])
	pos += 4

	nodes := make([]nodeInfo, 0, nodeCount)
	for i := uint32(0); i < nodeCount; i++ {
		if pos+25 > len(buf) {
			return directoryInfo{}, &DecodeError{Kind: ErrKindMalformedStream, Msg: "truncated node table"}
		}
		offset := int64(binary.BigEndian.Uint64(buf[pos:]))
		pos += 8
		size := int64(binary.BigEndian.Uint64(buf[pos:]))
		pos += 8
		typeID := int32(binary.BigEndian.Uint32(buf[pos:]))
		pos += 4
		nameStart := pos
		for pos < len(buf) && buf[pos] != 0 {
			pos++
		}
		path := string(buf[nameStart:pos])
		pos++ // NUL terminator
		nodes = append(nodes, nodeInfo{offset: offset, size: size, typeID: typeID, path: path})
	}

	return directoryInfo{blocks: blocks, nodes: nodes}, nil
}

// assembleBlocks decompresses each data block in sequence and concatenates
// them into the flat address space the node table's offsets index into.
func assembleBlocks(data []byte, blocks []blockInfo) ([]byte, error) {
	var out []byte
	pos := 0
	for i, b := range blocks {
		if pos+int(b.compressedSize) > len(data) {
			return nil, &DecodeError{Kind: ErrKindMalformedStream, Offset: pos, Msg: fmt.Sprintf("block %d exceeds bundle length", i)}
		}
		chunk, err := decompressSection(data[pos:pos+int(b.compressedSize)], int(b.uncompressedSize))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		pos += int(b.compressedSize)
	}
	return out, nil
}

func classifyNode(path string, typeID int32) ObjectKind {
	switch typeID {
	case typeIDAudioClip:
		return KindAudioClip
	case typeIDTexture2D:
		return KindTexture2D
	case typeIDSprite:
		return KindSprite
	default:
		return KindOther
	}
}

// Unity's well-known persistent class IDs for the object types this
// extractor cares about.
const (
	typeIDTexture2D = 28
	typeIDAudioClip  = 83
	typeIDSprite     = 213
)
