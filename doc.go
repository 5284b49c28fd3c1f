// Package homeprice 根据房源信息预测房价。
//
// 设计要点：
// - 编码固定：homeType / state 按固定类别做 one-hot，未知类别全 0
// - 收入回退：按邮编左连接收入中位数，缺失时使用全表均值
// - 列序固定：特征列顺序与训练时一致，模型可本地（linear / tree）也可远程（rpc / kserve）
// - 资源只读：地区集合、收入表、模型在启动时加载，预测可并发
package homeprice

import (
	"github.com/rushteam/homeprice/core"
	"github.com/rushteam/homeprice/estimator"
)

// 轻量 facade：便于用户直接 import "homeprice" 使用核心抽象。
type Listing = core.Listing
type HomeType = core.HomeType
type FeatureVector = core.FeatureVector
type Predictor = estimator.Predictor
type Resources = estimator.Resources
type Result = estimator.Result

const (
	HomeTypeSingleFamily = core.HomeTypeSingleFamily
	HomeTypeCondo        = core.HomeTypeCondo
	HomeTypeTownhouse    = core.HomeTypeTownhouse
	HomeTypeMultiFamily  = core.HomeTypeMultiFamily
)

// New 创建预测器
func New(res Resources, opts ...estimator.Option) (*Predictor, error) {
	return estimator.New(res, opts...)
}

// ParseListing 把原始输入解析为 Listing
func ParseListing(raw map[string]any) (*Listing, error) {
	return estimator.ParseListing(raw)
}
