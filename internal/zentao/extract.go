package zentao

// Response shape normalization. The upstream's envelope shape is only loosely
// specified, so list and record extraction each walk an explicit ordered list
// of strategies and return an empty result when nothing matches. Callers must
// treat an empty result as "no match found", never as an error.

// listStrategy attempts to pull a list of records out of a decoded body.
type listStrategy func(data any, field string) ([]map[string]any, bool)

// recordStrategy attempts to pull a single record out of a decoded body.
type recordStrategy func(data any, field string) (map[string]any, bool)

var listStrategies = []listStrategy{
	namedListField,
	nestedDataListField,
	bareTopLevelList,
}

var recordStrategies = []recordStrategy{
	namedRecordField,
	nestedDataRecordField,
	bareTopLevelRecord,
}

// bugIDKeys lists the alternative identifier field names probed on a bug record.
var bugIDKeys = []string{"id", "bugID", "bug_id"}

// ExtractList returns the first list shape found under the named field,
// under data.<field>, or as a bare top-level array.
func ExtractList(data any, field string) []map[string]any {
	for _, strategy := range listStrategies {
		if records, ok := strategy(data, field); ok {
			return records
		}
	}
	return []map[string]any{}
}

// ExtractRecord returns the first single-record shape found, or nil.
func ExtractRecord(data any, field string) map[string]any {
	for _, strategy := range recordStrategies {
		if record, ok := strategy(data, field); ok {
			return record
		}
	}
	return nil
}

// RecordID probes a record for its numeric identifier under the known
// alternative key names.
func RecordID(record map[string]any) (int64, bool) {
	for _, key := range bugIDKeys {
		value, ok := record[key]
		if !ok {
			continue
		}
		if id, ok := asInt64(value); ok && id > 0 {
			return id, true
		}
	}
	return 0, false
}

func namedListField(data any, field string) ([]map[string]any, bool) {
	object, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	return recordSlice(object[field])
}

func nestedDataListField(data any, field string) ([]map[string]any, bool) {
	object, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	nested, ok := object["data"].(map[string]any)
	if !ok {
		return nil, false
	}
	return recordSlice(nested[field])
}

func bareTopLevelList(data any, _ string) ([]map[string]any, bool) {
	return recordSlice(data)
}

func namedRecordField(data any, field string) (map[string]any, bool) {
	object, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	record, ok := object[field].(map[string]any)
	return record, ok
}

func nestedDataRecordField(data any, field string) (map[string]any, bool) {
	object, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	nested, ok := object["data"].(map[string]any)
	if !ok {
		return nil, false
	}
	record, ok := nested[field].(map[string]any)
	return record, ok
}

func bareTopLevelRecord(data any, _ string) (map[string]any, bool) {
	record, ok := data.(map[string]any)
	return record, ok
}

func recordSlice(value any) ([]map[string]any, bool) {
	items, ok := value.([]any)
	if !ok {
		return nil, false
	}
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if record, ok := item.(map[string]any); ok {
			records = append(records, record)
		}
	}
	return records, true
}

func asInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case float64:
		return int64(typed), true
	case int:
		return int64(typed), true
	case int64:
		return typed, true
	case string:
		var parsed int64
		for _, r := range typed {
			if r < '0' || r > '9' {
				return 0, false
			}
			parsed = parsed*10 + int64(r-'0')
		}
		if typed == "" {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func recordString(record map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := record[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
