package model

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// ハイパーパラメータは map[string]interface{} で受け渡される。
// YAMLやグリッド定義から来る値は int / int64 / float64 / string / bool が混在するため、
// 以下の関数で型を揃えてから推定器に設定する。

// ParamFloat converts a hyperparameter value to float64.
func ParamFloat(name string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	default:
		return 0, errors.NewValidationError(name, "expected a number", v)
	}
}

// ParamInt converts a hyperparameter value to int. Floats are accepted only
// when they hold an integral value.
func ParamInt(name string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case int32:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return 0, errors.NewValidationError(name, "expected an integer", v)
		}
		return int(x), nil
	case float32:
		return ParamInt(name, float64(x))
	default:
		return 0, errors.NewValidationError(name, "expected an integer", v)
	}
}

// ParamString converts a hyperparameter value to string.
func ParamString(name string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(name, "expected a string", v)
	}
	return s, nil
}

// ParamBool converts a hyperparameter value to bool.
func ParamBool(name string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewValidationError(name, "expected a boolean", v)
	}
	return b, nil
}

// CopyParams returns a shallow copy of params. A nil map yields an empty map.
func CopyParams(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// MergeParams returns base overlaid with override, leaving both untouched.
func MergeParams(base, override map[string]interface{}) map[string]interface{} {
	out := CopyParams(base)
	for k, v := range override {
		out[k] = v
	}
	return out
}

// FormatParams renders params as "k1=v1, k2=v2" with sorted keys.
// The output is deterministic and is used as a candidate label in logs and results.
func FormatParams(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return strings.Join(parts, ", ")
}

// UnknownParam returns the ValidationError used by SetParams implementations
// for keys the estimator does not recognise.
func UnknownParam(modelName, key string, known []string) error {
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)
	return errors.NewValidationError(key,
		fmt.Sprintf("unknown parameter for %s (valid: %s)", modelName, strings.Join(sorted, ", ")), key)
}
