package repository

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 本文件实现内存存储和 SQLite 存储共用的文档操作，语义与 MongoDB 保持一致：
// 缺失字段视为 null，数值比较忽略具体整数/浮点类型。

// toDocument 按 bson 标签将值转换为文档
func toDocument(v interface{}) (bson.M, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("序列化文档失败: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("反序列化文档失败: %w", err)
	}
	return doc, nil
}

// decodeDocuments 将文档解码到切片指针 out
func decodeDocuments(docs []bson.M, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return ErrInvalidResult
	}
	slice := rv.Elem()
	elemType := slice.Type().Elem()
	result := reflect.MakeSlice(slice.Type(), 0, len(docs))
	for _, doc := range docs {
		data, err := bson.Marshal(doc)
		if err != nil {
			return fmt.Errorf("序列化文档失败: %w", err)
		}
		elem := reflect.New(elemType)
		if err := bson.Unmarshal(data, elem.Interface()); err != nil {
			return fmt.Errorf("解码文档失败: %w", err)
		}
		result = reflect.Append(result, elem.Elem())
	}
	slice.Set(result)
	return nil
}

// matchDocument 判断文档是否满足全部条件
func matchDocument(doc bson.M, filters []Filter) bool {
	for _, f := range filters {
		actual := doc[f.Field]
		switch f.Op {
		case OpEq:
			if !valuesEqual(actual, f.Value) {
				return false
			}
		case OpNe:
			if valuesEqual(actual, f.Value) {
				return false
			}
		case OpGte:
			c, ok := compareValues(actual, f.Value)
			if !ok || c < 0 {
				return false
			}
		case OpLte:
			c, ok := compareValues(actual, f.Value)
			if !ok || c > 0 {
				return false
			}
		case OpEqOrNull:
			if normalizeValue(actual) != nil && !valuesEqual(actual, f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case time.Time:
		return float64(x.UnixMilli())
	case *time.Time:
		if x == nil {
			return nil
		}
		return float64(x.UnixMilli())
	case primitive.DateTime:
		return float64(int64(x))
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return v
	}
}

func valuesEqual(a, b interface{}) bool {
	na, nb := normalizeValue(a), normalizeValue(b)
	if na == nil || nb == nil {
		return na == nil && nb == nil
	}
	return reflect.DeepEqual(na, nb)
}

// compareValues 比较两个标量，类型不可比较时 ok 为 false
func compareValues(a, b interface{}) (int, bool) {
	na, nb := normalizeValue(a), normalizeValue(b)
	switch x := na.(type) {
	case float64:
		y, ok := nb.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := nb.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}

// applyPatch 以 $set 语义更新文档
func applyPatch(doc bson.M, patch map[string]interface{}) error {
	normalized, err := toDocument(bson.M(patch))
	if err != nil {
		return err
	}
	for k, v := range normalized {
		doc[k] = v
	}
	return nil
}

// decrementField 以 $inc 语义减少数值字段，缺失字段从0开始
func decrementField(doc bson.M, field string, amount int) error {
	switch x := doc[field].(type) {
	case nil:
		doc[field] = int64(-amount)
	case int32:
		doc[field] = int64(x) - int64(amount)
	case int64:
		doc[field] = x - int64(amount)
	case float64:
		doc[field] = x - float64(amount)
	default:
		return fmt.Errorf("字段 %s 不是数值类型: %T", field, x)
	}
	return nil
}

// sortDocuments 稳定排序，保持同值文档的存储顺序
func sortDocuments(docs []bson.M, sorts []Sort) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range sorts {
			c, ok := compareValues(docs[i][s.Field], docs[j][s.Field])
			if !ok || c == 0 {
				continue
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
