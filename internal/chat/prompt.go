package chat

import (
	"fmt"
	"strings"

	"github.com/iliyamo/bank-assistant/internal/model"
)

const basePrompt = "You are a banking assistant. You ONLY respond to customer questions with direct, short answers. " +
	"Keep responses under 2 sentences. Be direct and professional. ONLY respond to banking questions. " +
	"If asked about non-banking topics, say: 'I'm a banking assistant and can only help with financial questions.'"

const personalization = `
PERSONALIZATION GUIDELINES:
- Address the customer by their first name when appropriate
- Reference their specific account type and balance when relevant
- Consider their credit score and risk level when giving advice
- Mention their loan information if they have loans
- Be aware of their common issues and preferred contact method
- Tailor responses to their specific financial situation
- Always emphasize this is fictional demo data

SAFETY RULES:
- All data above is fictional demonstration data; never present it as a real account
- NEVER ask for or reveal real personal information (SSN, account numbers, passwords, PINs, emails, phone numbers)
- NEVER attempt to perform transactions or access real accounts
- For questions about a real account, tell the customer to contact the bank's support team directly
`

// Message is one turn of the conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemPrompt returns the persona preamble, personalised with c when it is
// not nil.
func SystemPrompt(c *model.Customer) string {
	if c == nil {
		return basePrompt
	}
	var b strings.Builder
	b.WriteString(basePrompt)
	fmt.Fprintf(&b, `
CURRENT CUSTOMER CONTEXT (FICTIONAL DATA):
You are speaking with %s %s, who has the following account information:
- Account Type: %s
- Account Status: %s
- Current Balance: $%s
- Credit Score: %s
- Risk Level: %s
- Account Opened: %s
- Last Transaction: %s
- Preferred Contact: %s
- Common Issues: %s
- Has Loans: %s
`, c.FirstName, c.LastName, c.AccountType, c.AccountStatus, money(c.BalanceValue()),
		c.CreditScore.String(), c.RiskLevel, c.AccountOpenedDate, c.LastTransactionDate,
		c.PreferredContactMethod, c.CommonIssues, c.HasLoans)
	if c.HasLoan() {
		fmt.Fprintf(&b, `
- Loan Type: %s
- Loan Amount: $%s
- Monthly Payment: $%s
- Interest Rate: %s%%
`, c.LoanTypes, money(c.LoanAmountValue()), money(c.MonthlyPaymentValue()), c.InterestRate)
	}
	b.WriteString(personalization)
	return b.String()
}

// BuildPrompt lays out the system prompt, the history in order and the new
// message as one completion prompt.
func BuildPrompt(system string, history []Message, message string) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return system + "\n\nConversation history:\n" + strings.Join(lines, "\n") + "\n\nUser: " + message + "\nAssistant:"
}

// money formats v with two decimals and thousands separators.
func money(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
