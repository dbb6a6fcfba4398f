package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AssignmentRelation names a many-to-many junction kept in sync with its owner.
type AssignmentRelation string

const (
	RelationClassTeachers   AssignmentRelation = "class_teachers"
	RelationFacultySubjects AssignmentRelation = "faculty_subjects"
)

// MemberRef is a member id supplied either as a bare string or as {"id": "..."}.
type MemberRef struct {
	ID string `json:"id"`
}

func (m *MemberRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		m.ID = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &m.ID)
	}

	var record struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("member reference must be an id or an object with id: %w", err)
	}
	if len(record.ID) == 0 || bytes.Equal(record.ID, []byte("null")) {
		m.ID = ""
		return nil
	}
	return json.Unmarshal(record.ID, &m.ID)
}

// MemberIDs returns the raw ids of the references.
func MemberIDs(refs []MemberRef) []string {
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}
	return ids
}
