package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleID идентификатор, который бэкенд может прислать строкой или числом.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("models: id must be string or number: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// MarshalJSON пишет числовой идентификатор числом, остальные строкой.
func (id FlexibleID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Group учебная группа пользователя.
type Group struct {
	ID            FlexibleID `json:"id"`
	CourseID      FlexibleID `json:"course_id,omitempty"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Students      []string   `json:"students,omitempty"`
	Teachers      []string   `json:"teachers,omitempty"`
	TotalStudents *int       `json:"total_students,omitempty"`
}

// MyGroupsRequest тело запроса /group/my.
type MyGroupsRequest struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}
