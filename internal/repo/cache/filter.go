/**
 * 缓存仓库层:快照记录过滤器
 * @author: sun977
 * @date: 2025.11.21
 * @description: 对快照记录列表应用[field, op, value]条件表达式,用于聚合统计
 * @note: 记录缺少条件字段时放行该记录,保持与快照字段演进的兼容
 */
package cache

import (
	"fmt"
	"reflect"
)

// FilterOp 过滤操作符
type FilterOp string

const (
	OpEq  FilterOp = "eq"  // 等于
	OpNq  FilterOp = "nq"  // 不等于
	OpLt  FilterOp = "lt"  // 小于
	OpGt  FilterOp = "gt"  // 大于
	OpLte FilterOp = "lte" // 小于等于
	OpGte FilterOp = "gte" // 大于等于
	OpIn  FilterOp = "in"  // 属于集合
)

// FilterCondition 单条过滤条件
type FilterCondition struct {
	Field string      // 字段名
	Op    FilterOp    // 操作符
	Value interface{} // 比较值 [OpIn时为切片]
}

// ApplyFilter 对记录列表应用全部条件,返回同时满足所有条件的记录
// 记录缺少条件字段时视为满足该条件
func ApplyFilter(records []map[string]interface{}, conditions []FilterCondition) ([]map[string]interface{}, error) {
	matched := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		ok, err := matchRecord(record, conditions)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

// matchRecord 判断单条记录是否满足全部条件
func matchRecord(record map[string]interface{}, conditions []FilterCondition) (bool, error) {
	for _, cond := range conditions {
		fieldValue, exists := record[cond.Field]
		if !exists {
			// 字段缺失视为放行
			continue
		}
		ok, err := matchCondition(fieldValue, cond)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// matchCondition 单条件匹配
func matchCondition(fieldValue interface{}, cond FilterCondition) (bool, error) {
	switch cond.Op {
	case OpEq:
		return valuesEqual(fieldValue, cond.Value), nil
	case OpNq:
		return !valuesEqual(fieldValue, cond.Value), nil
	case OpLt, OpGt, OpLte, OpGte:
		a, okA := toFloat(fieldValue)
		b, okB := toFloat(cond.Value)
		if !okA || !okB {
			return false, fmt.Errorf("filter op %s requires numeric values, got %T and %T", cond.Op, fieldValue, cond.Value)
		}
		switch cond.Op {
		case OpLt:
			return a < b, nil
		case OpGt:
			return a > b, nil
		case OpLte:
			return a <= b, nil
		default:
			return a >= b, nil
		}
	case OpIn:
		set := reflect.ValueOf(cond.Value)
		if set.Kind() != reflect.Slice && set.Kind() != reflect.Array {
			return false, fmt.Errorf("filter op in requires a slice value, got %T", cond.Value)
		}
		for i := 0; i < set.Len(); i++ {
			if valuesEqual(fieldValue, set.Index(i).Interface()) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unsupported filter op: %s", cond.Op)
	}
}

// valuesEqual 值比较
// 数值类型先归一化为float64再比较,其余类型走深度相等
func valuesEqual(a, b interface{}) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// toFloat 数值归一化 [JSON反序列化产生float64,内存记录可能是各种整型]
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		// 自定义整型枚举(如状态枚举)通过反射归一化
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), true
		case reflect.Float32, reflect.Float64:
			return rv.Float(), true
		}
		return 0, false
	}
}
