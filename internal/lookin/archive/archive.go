// Copyright 2025 Joseph Cumines
//
// Keyed-archive payload codec for the LookinServer protocol

// Package archive encodes request payloads and decodes response payloads in
// the keyed-archive format produced and consumed by the in-app LookinServer
// agent: an NSKeyedArchiver object graph serialized as a binary property
// list. Coverage is deliberately limited to the object classes the bridge
// exchanges; full compatibility with arbitrary archives is a non-goal.
package archive

import (
	"bytes"
	"fmt"

	"howett.net/plist"
)

const (
	archiverName    = "NSKeyedArchiver"
	archiverVersion = 100000

	// Root classes used on the wire. The request attachment wraps arbitrary
	// payload values in a single "data" field; the response attachment
	// carries data, error, and the app's background state.
	requestAttachmentClass  = "LookinConnectionAttachment"
	responseAttachmentClass = "LookinConnectionResponseAttachment"
)

// ResponseAttachment is the decoded response envelope.
type ResponseAttachment struct {
	Data              interface{}
	Error             *ServerErrorInfo
	AppIsInBackground bool
}

// ServerErrorInfo is a decoded NSError from a response envelope.
type ServerErrorInfo struct {
	Domain  string
	Message string
	Code    int64
}

// encoder flattens an object graph into the $objects table of a keyed
// archive. Index 0 is always the "$null" placeholder.
type encoder struct {
	objects    []interface{}
	classUIDs  map[string]plist.UID
	stringUIDs map[string]plist.UID
}

func newEncoder() *encoder {
	return &encoder{
		objects:    []interface{}{"$null"},
		classUIDs:  make(map[string]plist.UID),
		stringUIDs: make(map[string]plist.UID),
	}
}

func (e *encoder) add(obj interface{}) plist.UID {
	e.objects = append(e.objects, obj)
	return plist.UID(len(e.objects) - 1)
}

// classRef returns the UID of the class-description entry for name, adding
// it on first use.
func (e *encoder) classRef(name string, parents ...string) plist.UID {
	if uid, ok := e.classUIDs[name]; ok {
		return uid
	}
	classes := append([]string{name}, parents...)
	uid := e.add(map[string]interface{}{
		"$classname": name,
		"$classes":   classes,
	})
	e.classUIDs[name] = uid
	return uid
}

func (e *encoder) stringRef(s string) plist.UID {
	if uid, ok := e.stringUIDs[s]; ok {
		return uid
	}
	uid := e.add(s)
	e.stringUIDs[s] = uid
	return uid
}

// encodeValue adds v to the objects table and returns its UID. Supported
// values mirror what the agent accepts: nil, booleans, integers, floats,
// strings, byte slices, arrays, and string-keyed dictionaries.
func (e *encoder) encodeValue(v interface{}) (plist.UID, error) {
	switch val := v.(type) {
	case nil:
		return plist.UID(0), nil
	case bool:
		return e.add(val), nil
	case int:
		return e.add(int64(val)), nil
	case int64:
		return e.add(val), nil
	case uint64:
		return e.add(val), nil
	case float64:
		return e.add(val), nil
	case string:
		return e.stringRef(val), nil
	case []byte:
		return e.add(val), nil
	case []float64:
		refs := make([]plist.UID, 0, len(val))
		for _, item := range val {
			refs = append(refs, e.add(item))
		}
		return e.add(map[string]interface{}{
			"$class":     e.classRef("NSArray", "NSObject"),
			"NS.objects": refs,
		}), nil
	case []interface{}:
		refs := make([]plist.UID, 0, len(val))
		for _, item := range val {
			uid, err := e.encodeValue(item)
			if err != nil {
				return 0, err
			}
			refs = append(refs, uid)
		}
		return e.add(map[string]interface{}{
			"$class":     e.classRef("NSArray", "NSObject"),
			"NS.objects": refs,
		}), nil
	case *Object:
		fields := make(map[string]interface{}, len(val.Fields)+1)
		fields["$class"] = e.classRef(val.ClassName, "NSObject")
		for k, item := range val.Fields {
			switch item.(type) {
			case bool, int, int64, uint64, float64:
				// Primitives are stored inline, matching encodeInteger/
				// encodeBool keyed-archiver semantics.
				fields[k] = item
			default:
				uid, err := e.encodeValue(item)
				if err != nil {
					return 0, err
				}
				fields[k] = uid
			}
		}
		return e.add(fields), nil
	case map[string]interface{}:
		keys := make([]plist.UID, 0, len(val))
		values := make([]plist.UID, 0, len(val))
		for k, item := range val {
			keys = append(keys, e.stringRef(k))
			uid, err := e.encodeValue(item)
			if err != nil {
				return 0, err
			}
			values = append(values, uid)
		}
		return e.add(map[string]interface{}{
			"$class":     e.classRef("NSDictionary", "NSObject"),
			"NS.keys":    keys,
			"NS.objects": values,
		}), nil
	default:
		return 0, fmt.Errorf("archive: unsupported value type %T", v)
	}
}

// finish wraps the objects table with the archive envelope and serializes it
// as a binary plist.
func (e *encoder) finish(root plist.UID) ([]byte, error) {
	archive := map[string]interface{}{
		"$version":  archiverVersion,
		"$archiver": archiverName,
		"$top":      map[string]interface{}{"root": root},
		"$objects":  e.objects,
	}
	var buf bytes.Buffer
	if err := plist.NewBinaryEncoder(&buf).Encode(archive); err != nil {
		return nil, fmt.Errorf("archive: encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeAttachment wraps data in the request-attachment envelope and
// serializes the archive.
func EncodeAttachment(data interface{}) ([]byte, error) {
	e := newEncoder()
	dataUID, err := e.encodeValue(data)
	if err != nil {
		return nil, err
	}
	root := e.add(map[string]interface{}{
		"$class": e.classRef(requestAttachmentClass, "NSObject"),
		"data":   dataUID,
	})
	return e.finish(root)
}

// EncodeModification serializes a LookinAttributeModification as the
// payload of a request-attachment envelope.
func EncodeModification(m *Modification) ([]byte, error) {
	e := newEncoder()
	valueUID, err := e.encodeValue(m.Value)
	if err != nil {
		return nil, err
	}
	modUID := e.add(map[string]interface{}{
		"$class":                e.classRef("LookinAttributeModification", "NSObject"),
		"targetOid":             m.TargetOid,
		"setterSelector":        e.stringRef(m.SetterSelector),
		"attrType":              int64(m.AttrType),
		"value":                 valueUID,
		"clientReadableVersion": e.stringRef(m.ClientReadableVersion),
	})
	root := e.add(map[string]interface{}{
		"$class": e.classRef(requestAttachmentClass, "NSObject"),
		"data":   modUID,
	})
	return e.finish(root)
}

// EncodeResponse serializes a response-attachment envelope the way the
// server does. The bridge itself never sends responses; this exists for
// local fakes and protocol tests exercising the decode path.
func EncodeResponse(data interface{}, errInfo *ServerErrorInfo, appIsInBackground bool) ([]byte, error) {
	e := newEncoder()
	fields := map[string]interface{}{
		"$class":            e.classRef(responseAttachmentClass, "NSObject"),
		"appIsInBackground": appIsInBackground,
	}
	dataUID, err := e.encodeValue(data)
	if err != nil {
		return nil, err
	}
	fields["data"] = dataUID
	if errInfo != nil {
		userInfoUID, err := e.encodeValue(map[string]interface{}{
			"NSLocalizedDescription": errInfo.Message,
		})
		if err != nil {
			return nil, err
		}
		fields["error"] = e.add(map[string]interface{}{
			"$class":     e.classRef("NSError", "NSObject"),
			"NSDomain":   e.stringRef(errInfo.Domain),
			"NSCode":     errInfo.Code,
			"NSUserInfo": userInfoUID,
		})
	}
	return e.finish(e.add(fields))
}

// EncodeDictionary serializes a bare string-keyed dictionary archive with no
// attachment envelope.
func EncodeDictionary(dict map[string]interface{}) ([]byte, error) {
	e := newEncoder()
	root, err := e.encodeValue(dict)
	if err != nil {
		return nil, err
	}
	return e.finish(root)
}

// Modification is the wire shape of a LookinAttributeModification.
type Modification struct {
	Value                 interface{}
	SetterSelector        string
	ClientReadableVersion string
	TargetOid             uint64
	AttrType              int
}

// Decoder resolves a keyed archive back into Go values. Each Decoder starts
// from the global class-name remap table and may carry additional instance
// remappings.
type Decoder struct {
	objects []interface{}
	memo    map[plist.UID]interface{}
	remap   map[string]string
	rootUID plist.UID
	hasRoot bool
}

// NewDecoder parses the archive envelope of payload. The returned Decoder
// applies the global class remap table; RemapClass adds instance bindings.
func NewDecoder(payload []byte) (*Decoder, error) {
	var archive map[string]interface{}
	if _, err := plist.Unmarshal(payload, &archive); err != nil {
		return nil, fmt.Errorf("archive: parse failed: %w", err)
	}
	if name, _ := archive["$archiver"].(string); name != archiverName {
		return nil, fmt.Errorf("archive: unexpected archiver %q", name)
	}
	objects, ok := archive["$objects"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("archive: missing $objects table")
	}
	d := &Decoder{
		objects: objects,
		memo:    make(map[plist.UID]interface{}),
		remap:   make(map[string]string, len(globalClassRemap)),
	}
	for wire, host := range globalClassRemap {
		d.remap[wire] = host
	}
	if top, ok := archive["$top"].(map[string]interface{}); ok {
		d.rootUID, d.hasRoot = asUID(top["root"])
	}
	if !d.hasRoot {
		return nil, fmt.Errorf("archive: missing $top root")
	}
	return d, nil
}

// RemapClass rebinds a wire class name on this decoder instance only.
func (d *Decoder) RemapClass(wireName, hostName string) {
	d.remap[wireName] = hostName
}

// Decode resolves the archive's root object.
func (d *Decoder) Decode() (interface{}, error) {
	return d.resolve(d.rootUID)
}

// DecodeResponse decodes payload as a response-attachment envelope. Any
// decoding failure, including a wrong root class, surfaces as an error the
// caller maps to the invalid-frame taxonomy.
func DecodeResponse(payload []byte) (*ResponseAttachment, error) {
	d, err := NewDecoder(payload)
	if err != nil {
		return nil, err
	}
	root, err := d.Decode()
	if err != nil {
		return nil, err
	}
	obj, ok := root.(*Object)
	if !ok || obj.ClassName != responseAttachmentClass {
		return nil, fmt.Errorf("archive: unexpected root %T (want %s)", root, responseAttachmentClass)
	}

	resp := &ResponseAttachment{
		Data:              obj.Fields["data"],
		AppIsInBackground: asBool(obj.Fields["appIsInBackground"]),
	}
	if errObj, ok := obj.Fields["error"].(*Object); ok {
		resp.Error = decodeNSError(errObj)
	}
	return resp, nil
}

func decodeNSError(obj *Object) *ServerErrorInfo {
	info := &ServerErrorInfo{}
	info.Domain, _ = obj.Fields["NSDomain"].(string)
	info.Code, _ = asInt64(obj.Fields["NSCode"])
	if userInfo, ok := obj.Fields["NSUserInfo"].(map[string]interface{}); ok {
		if desc, ok := userInfo["NSLocalizedDescription"].(string); ok {
			info.Message = desc
		} else if reason, ok := userInfo["NSLocalizedFailureReason"].(string); ok {
			info.Message = reason
		}
	}
	if info.Message == "" {
		info.Message = fmt.Sprintf("%s error %d", info.Domain, info.Code)
	}
	return info
}

// resolve converts the object at uid, memoizing so shared references resolve
// to the same value and reference cycles terminate.
func (d *Decoder) resolve(uid plist.UID) (interface{}, error) {
	if int(uid) >= len(d.objects) {
		return nil, fmt.Errorf("archive: reference %d out of range", uid)
	}
	if v, ok := d.memo[uid]; ok {
		return v, nil
	}

	raw := d.objects[uid]
	if s, ok := raw.(string); ok && s == "$null" {
		d.memo[uid] = nil
		return nil, nil
	}

	dict, ok := raw.(map[string]interface{})
	if !ok {
		// Plain value: string, number, bool, or data.
		d.memo[uid] = raw
		return raw, nil
	}

	classUID, ok := asUID(dict["$class"])
	if !ok {
		d.memo[uid] = dict
		return dict, nil
	}
	className, err := d.className(classUID)
	if err != nil {
		return nil, err
	}
	if host, ok := d.remap[className]; ok {
		className = host
	}

	return d.resolveInstance(uid, className, dict)
}

func (d *Decoder) className(classUID plist.UID) (string, error) {
	if int(classUID) >= len(d.objects) {
		return "", fmt.Errorf("archive: class reference %d out of range", classUID)
	}
	desc, ok := d.objects[classUID].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("archive: malformed class description at %d", classUID)
	}
	name, ok := desc["$classname"].(string)
	if !ok {
		return "", fmt.Errorf("archive: class description at %d has no name", classUID)
	}
	return name, nil
}

func (d *Decoder) resolveInstance(uid plist.UID, className string, dict map[string]interface{}) (interface{}, error) {
	switch className {
	case "NSDictionary", "NSMutableDictionary":
		result := make(map[string]interface{})
		d.memo[uid] = result
		keys, _ := dict["NS.keys"].([]interface{})
		values, _ := dict["NS.objects"].([]interface{})
		for i := range keys {
			if i >= len(values) {
				break
			}
			k, err := d.resolveRef(keys[i])
			if err != nil {
				return nil, err
			}
			v, err := d.resolveRef(values[i])
			if err != nil {
				return nil, err
			}
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("archive: non-string dictionary key %T", k)
			}
			result[key] = v
		}
		return result, nil

	case "NSArray", "NSMutableArray", "NSSet", "NSMutableSet", "NSOrderedSet":
		items, _ := dict["NS.objects"].([]interface{})
		result := make([]interface{}, 0, len(items))
		d.memo[uid] = result
		for _, item := range items {
			v, err := d.resolveRef(item)
			if err != nil {
				return nil, err
			}
			result = append(result, v)
		}
		d.memo[uid] = result
		return result, nil

	case "NSString", "NSMutableString":
		s, _ := dict["NS.string"].(string)
		d.memo[uid] = s
		return s, nil

	case "NSData", "NSMutableData":
		b, _ := dict["NS.data"].([]byte)
		d.memo[uid] = b
		return b, nil

	case "NSNull":
		d.memo[uid] = nil
		return nil, nil

	case hostColorClass:
		c := decodeColor(dict)
		d.memo[uid] = c
		return c, nil

	case hostImageClass:
		img, err := d.decodeImage(dict)
		if err != nil {
			return nil, err
		}
		d.memo[uid] = img
		return img, nil

	default:
		obj := &Object{ClassName: className, Fields: make(map[string]interface{})}
		d.memo[uid] = obj
		for k, v := range dict {
			if k == "$class" {
				continue
			}
			resolved, err := d.resolveRef(v)
			if err != nil {
				return nil, err
			}
			obj.Fields[k] = resolved
		}
		return obj, nil
	}
}

// resolveRef resolves v if it is a UID reference, otherwise returns the
// inline primitive as-is. Keyed archives mix both: encodeObject:forKey:
// stores references while encodeInteger/ encodeBool store inline values.
func (d *Decoder) resolveRef(v interface{}) (interface{}, error) {
	if uid, ok := asUID(v); ok {
		return d.resolve(uid)
	}
	return v, nil
}
