package core

import (
	"os"
	"testing"

	"github.com/goccy/go-json"
)

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}

func TestOperations_JSON_Unmarshalling(t *testing.T) {

	type Object struct {
		Operations []Operation `json:"operations"`
	}
	var object Object
	jsonRead := `{"operations":["create","read","update","delete_from"]}`
	err := json.Unmarshal([]byte(jsonRead), &object)
	if err != nil {
		t.Fatal(err)
	}

	jsonRead = `{"operations":["invalid"]}`
	err = json.Unmarshal([]byte(jsonRead), &object)
	if err == nil {
		t.Fatal("invalid operation accepted")
	}
}

func TestAcceptHeader(t *testing.T) {
	if h := AcceptHeader(0); h != "application/vnd.cirrus+json; version=0" {
		t.Fatal("unexpected accept header:", h)
	}
}

func TestCheckArgument(t *testing.T) {
	if err := CheckArgument("type", "message"); err != nil {
		t.Fatal(err)
	}
	if err := CheckArgument("type", "  "); err == nil {
		t.Fatal("blank argument accepted")
	}
	if err := CheckArgument("type", ""); err == nil {
		t.Fatal("empty argument accepted")
	}
}
