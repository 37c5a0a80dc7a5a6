package reactive

import "reflect"

func isCallable(value interface{}) bool {
	if value == nil {
		return false
	}
	return reflect.ValueOf(value).Kind() == reflect.Func
}

// CopyRaw recursively unwraps a managed graph into plain data. The result
// shares nothing with the managed originals, so consumers can serialize or
// mutate it freely.
func CopyRaw(value interface{}) interface{} {
	switch v := value.(type) {
	case *Object:
		return CopyRaw(v.raw)
	case map[string]interface{}:
		res := make(map[string]interface{}, len(v))
		for k, el := range v {
			res[k] = CopyRaw(el)
		}
		return res
	case []interface{}:
		res := make([]interface{}, len(v))
		for i, el := range v {
			res[i] = CopyRaw(el)
		}
		return res
	}
	return value
}
