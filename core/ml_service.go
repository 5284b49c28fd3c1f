package core

import "context"

// MLService 是远程模型推理服务的领域接口。
//
// 定义在领域层（core），由基础设施层（service）实现，
// model.RemoteModel 通过它把特征向量交给外部推理服务（KServe、TF Serving REST 等）。
type MLService interface {
	// Predict 批量预测
	Predict(ctx context.Context, req *MLPredictRequest) (*MLPredictResponse, error)

	// Health 健康检查
	Health(ctx context.Context) error

	// Close 关闭连接
	Close(ctx context.Context) error
}

// MLPredictRequest 预测请求
type MLPredictRequest struct {
	// Instances 特征实例列表（每个实例是一个按 schema 顺序排列的特征向量）
	Instances [][]float64

	// Columns 列名（可选，部分服务需要按名称组装输入）
	Columns []string
}

// MLPredictResponse 预测响应
type MLPredictResponse struct {
	// Predictions 预测结果列表（与请求实例一一对应）
	Predictions []float64

	// ModelVersion 模型版本（如果服务返回）
	ModelVersion string
}
