// Package hal models HAL+JSON payloads: links, embedded resources, page
// metadata, and the descriptors callers use to ask for related resources.
//
// A Document is the parsed, schema-agnostic view of a response body. Typed
// models embed Resource and are decoded from a Document with DecodeObject or
// DecodeList; relations resolved by the builder travel with the document in
// Resolved and are read back through LinkedObject and LinkedList.
package hal
