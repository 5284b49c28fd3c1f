package store

import "github.com/rushteam/homeprice/core"

// 注意：此包只包含实现，接口定义在 core 包。
// 使用 core.Store 和 core.KeyValueStore 接口。
//
// 示例：
//   var kv core.KeyValueStore = NewMemoryStore()
//   _ = kv.HSet(ctx, "median_income_by_zip", "90210", []byte("120000"))

// ErrNotFound 表示 key 不存在
var ErrNotFound = core.ErrStoreNotFound
