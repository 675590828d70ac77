package token

// BalanceResponse ответ токен-сервиса на запрос баланса.
type BalanceResponse struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

// AllowanceResponse ответ токен-сервиса на запрос лимита списания.
type AllowanceResponse struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance int64  `json:"allowance"`
}

// TransferRequest запрос на списание средств от имени владельца.
// Reference — идемпотентный ключ перевода: повторная отправка
// с тем же значением не приводит к повторному списанию.
type TransferRequest struct {
	Owner     string `json:"owner"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// TransferResult ответ токен-сервиса на запрос перевода.
type TransferResult struct {
	TxHash  string `json:"tx_hash"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
