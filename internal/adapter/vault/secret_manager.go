package vault

import (
	"fmt"

	"github.com/hashicorp/vault/api"
)

// SecretManager reads the gateway's credentials from Vault when they are
// not supplied through the environment.
type SecretManager struct {
	client *api.Client
}

func NewSecretManager(address, token string) (*SecretManager, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, err
	}

	client.SetToken(token)

	return &SecretManager{client: client}, nil
}

func (sm *SecretManager) GetDatabaseCredentials() (string, error) {
	return sm.readField("secret/data/database", "connection_string")
}

func (sm *SecretManager) GetStripeKey() (string, error) {
	return sm.readField("secret/data/stripe", "secret_key")
}

func (sm *SecretManager) GetIntelBackendKey() (string, error) {
	return sm.readField("secret/data/intel-backend", "api_key")
}

func (sm *SecretManager) GetJWTSecret() (string, error) {
	return sm.readField("secret/data/auth", "jwt_secret")
}

func (sm *SecretManager) readField(path, field string) (string, error) {
	secret, err := sm.client.Logical().Read(path)
	if err != nil {
		return "", err
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault: no secret at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("vault: malformed secret at %s", path)
	}
	value, ok := data[field].(string)
	if !ok {
		return "", fmt.Errorf("vault: field %s missing at %s", field, path)
	}
	return value, nil
}
