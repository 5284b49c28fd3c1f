package estimator

import (
	"errors"

	"github.com/rushteam/homeprice/core"
	"github.com/rushteam/homeprice/pkg/conv"
)

var errMissingField = errors.New("required field is missing")

// ParseListing 把原始输入（通常来自 JSON）转换成 Listing。
//
// 字段按 state, zipcode, homeType, livingArea, bedrooms, bathrooms, lotArea 的顺序检查，
// 第一个缺失或无法转换的字段作为 INVALID_INPUT 返回：
//   - zipcode / bedrooms / bathrooms 按 int() 语义转换（浮点向零截断，"3.5" 报错）
//   - livingArea / lotArea 按 float() 语义转换
//   - state / homeType 必须存在；非字符串值视为未知类别，编码为全 0
func ParseListing(raw map[string]any) (*core.Listing, error) {
	l := &core.Listing{}

	v, err := requireField(raw, core.FieldRegion)
	if err != nil {
		return nil, err
	}
	s, _ := conv.ToString(v)
	l.Region = core.RegionCode(s)

	if l.PostalCode, err = parseInt(raw, core.FieldPostalCode); err != nil {
		return nil, err
	}

	if v, err = requireField(raw, core.FieldHomeType); err != nil {
		return nil, err
	}
	s, _ = conv.ToString(v)
	l.HomeType = core.HomeType(s)

	if l.LivingArea, err = parseFloat(raw, core.FieldLivingArea); err != nil {
		return nil, err
	}
	if l.Bedrooms, err = parseInt(raw, core.FieldBedrooms); err != nil {
		return nil, err
	}
	if l.Bathrooms, err = parseInt(raw, core.FieldBathrooms); err != nil {
		return nil, err
	}
	if l.LotArea, err = parseFloat(raw, core.FieldLotArea); err != nil {
		return nil, err
	}
	return l, nil
}

func requireField(raw map[string]any, field string) (any, error) {
	v, ok := raw[field]
	if !ok {
		return nil, core.NewInvalidInputError(field, errMissingField)
	}
	return v, nil
}

func parseInt(raw map[string]any, field string) (int64, error) {
	v, err := requireField(raw, field)
	if err != nil {
		return 0, err
	}
	n, err := conv.ParseInt(v)
	if err != nil {
		return 0, core.NewInvalidInputError(field, err)
	}
	return n, nil
}

func parseFloat(raw map[string]any, field string) (float64, error) {
	v, err := requireField(raw, field)
	if err != nil {
		return 0, err
	}
	f, err := conv.ParseFloat(v)
	if err != nil {
		return 0, core.NewInvalidInputError(field, err)
	}
	return f, nil
}
