package activitypub

// documentSchema is the inbound pre-validation schema. Deliberately
// permissive: it rejects documents that cannot possibly be activities
// (non-objects, missing or non-string type) and leaves per-type field
// checks to entity validation.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"type": "string", "minLength": 1},
    "id": {"type": "string"},
    "actor": {"type": ["string", "object"]},
    "object": {"type": ["string", "object", "null"]},
    "published": {"type": "string"},
    "signature": {
      "type": "object",
      "required": ["signatureValue"],
      "properties": {
        "type": {"type": "string"},
        "creator": {"type": "string"},
        "created": {"type": "string"},
        "signatureValue": {"type": "string"}
      }
    }
  }
}`
