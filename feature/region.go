package feature

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/rushteam/homeprice/core"
)

// RegionSet 地区代码集合，对应 states.json。
// 文件是一个 JSON 对象：key 为地区代码，value 为任意辅助信息（如州名），编码只用 key。
// 加载后只读，可在多个 goroutine 间共享。
type RegionSet struct {
	codes []string
	meta  map[string]json.RawMessage
}

// NewRegionSet 由地区代码构造集合（去重后按字母序排列）
func NewRegionSet(codes ...string) *RegionSet {
	meta := make(map[string]json.RawMessage, len(codes))
	for _, c := range codes {
		meta[c] = nil
	}
	return newRegionSet(meta)
}

func newRegionSet(meta map[string]json.RawMessage) *RegionSet {
	codes := make([]string, 0, len(meta))
	for c := range meta {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return &RegionSet{codes: codes, meta: meta}
}

// LoadRegionSet 从 JSON 对象解析地区集合
func LoadRegionSet(r io.Reader) (*RegionSet, error) {
	var meta map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&meta); err != nil {
		return nil, &core.DomainError{
			Module:  core.ModuleFeature,
			Code:    core.ErrorCodeInvalidInput,
			Message: "feature: parse region set",
			Err:     err,
		}
	}
	if len(meta) == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: region set is empty")
	}
	return newRegionSet(meta), nil
}

// Codes 返回按字母序排列的地区代码（返回副本）
func (s *RegionSet) Codes() []string {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// Contains 判断地区代码是否在集合内（大小写敏感）
func (s *RegionSet) Contains(code string) bool {
	_, ok := s.meta[code]
	return ok
}

// Len 地区数量
func (s *RegionSet) Len() int { return len(s.codes) }

// Meta 返回地区代码的辅助信息原文
func (s *RegionSet) Meta(code string) (json.RawMessage, bool) {
	m, ok := s.meta[code]
	return m, ok
}

func (s *RegionSet) String() string {
	return fmt.Sprintf("RegionSet(%d)", len(s.codes))
}
