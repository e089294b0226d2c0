package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	petdomain "github.com/Apurer/go-entity-processors/internal/domains/pets/domain"
	orderdomain "github.com/Apurer/go-entity-processors/internal/domains/store/domain"
	"github.com/Apurer/go-entity-processors/internal/processing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	out, err := run(t, "list")
	require.NoError(t, err)
	require.Contains(t, out, "processors:\n")
	require.Contains(t, out, "  pet_validate\n")
	require.Contains(t, out, "criteria:\n")
	require.Contains(t, out, "  order_is_complete\n")
}

func TestProcess_NormalizesPet(t *testing.T) {
	file := writeFile(t, "pet.json", `{"id":"p-1","name":"  Rex ","photoUrls":["https://img/rex.png"]}`)

	out, err := run(t, "process", "pet_validate", "--model", "pet", "--file", file)
	require.NoError(t, err)

	var resp processing.ProcessResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	var pet petdomain.Pet
	require.NoError(t, json.Unmarshal(resp.Payload, &pet))
	require.Equal(t, "Rex", pet.Name)
	require.Equal(t, petdomain.StatusAvailable, pet.Status)
	require.NotNil(t, pet.UpdatedAt)
}

func TestProcess_UsesSeededEntities(t *testing.T) {
	seedFile := writeFile(t, "seed.json", `[
		{"model":"payment","version":1,"state":"paid","entity":{"paymentId":"pay-1","cartId":"cart-1","amount":40,"status":"paid"}}
	]`)
	orderFile := writeFile(t, "order.json", `{"orderId":"o-1","cartId":"cart-1","quantity":1,"total":40,"status":"placed"}`)

	out, err := run(t, "--seed", seedFile, "process", "order_approve", "--model", "order", "--state", "placed", "--file", orderFile)
	require.NoError(t, err)

	var resp processing.ProcessResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	var order orderdomain.Order
	require.NoError(t, json.Unmarshal(resp.Payload, &order))
	require.Equal(t, orderdomain.StatusApproved, order.Status)
}

func TestProcess_WithoutPaymentFails(t *testing.T) {
	orderFile := writeFile(t, "order.json", `{"orderId":"o-1","cartId":"cart-1","status":"placed"}`)

	out, err := run(t, "process", "order_approve", "--model", "order", "--state", "placed", "--file", orderFile)
	require.Error(t, err)

	var resp processing.ProcessResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, processing.CodePreconditionFailed, resp.Error.Code)
}

func TestProcess_UnknownProcessor(t *testing.T) {
	file := writeFile(t, "pet.json", `{"id":"p-1"}`)

	out, err := run(t, "process", "pet_fly", "--model", "pet", "--file", file)
	require.Error(t, err)
	require.Contains(t, out, string(processing.CodeUnknownHandler))
}

func TestProcess_ReadsStdin(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(`{"id":"p-1","name":"Rex","photoUrls":["u"]}`))
	root.SetArgs([]string{"process", "pet_validate", "--model", "pet"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), `"success": true`)
}

func TestEvaluate(t *testing.T) {
	file := writeFile(t, "pet.json", `{"id":"p-1","name":"Rex","photoUrls":["u"],"status":"available"}`)

	out, err := run(t, "evaluate", "pet_is_available", "--model", "pet", "--state", "available", "--file", file)
	require.NoError(t, err)

	var resp processing.CriterionResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	require.True(t, resp.Matches)
}

func TestRejectsInvalidInput(t *testing.T) {
	file := writeFile(t, "bad.json", `{not json`)
	_, err := run(t, "process", "pet_validate", "--model", "pet", "--file", file)
	require.ErrorContains(t, err, "not valid JSON")

	_, err = run(t, "process", "pet_validate", "--file", file)
	require.Error(t, err)

	_, err = run(t, "--seed", writeFile(t, "seed.json", `[{"model":""}]`), "list")
	require.ErrorContains(t, err, "seed record 0")
}
