package registry

// Builtin descriptors for the provider object graph we mirror. The column
// sets promote the fields application code actually queries on; everything
// else stays reachable through the raw snapshot.

func customerDescriptor() *Descriptor {
	return &Descriptor{
		Kind:  "customer",
		Table: "customers",
		Fields: []FieldSpec{
			{Column: "name", SourceKey: "name", Rule: RuleString},
			{Column: "email", SourceKey: "email", Rule: RuleString},
			{Column: "description", SourceKey: "description", Rule: RuleString},
			{Column: "currency", SourceKey: "currency", Rule: RuleString},
			{Column: "balance", SourceKey: "balance", Rule: RuleInt},
			{Column: "delinquent", SourceKey: "delinquent", Rule: RuleBool},
			{Column: "created", SourceKey: "created", Rule: RuleTimestamp},
			{Column: "metadata", SourceKey: "metadata", Rule: RuleJSON},
		},
		Relations: []RelationSpec{
			{Column: "default_source", SourceKey: "default_source", TargetKind: "card"},
		},
	}
}

func cardDescriptor() *Descriptor {
	return &Descriptor{
		Kind:  "card",
		Table: "cards",
		Fields: []FieldSpec{
			{Column: "brand", SourceKey: "brand", Rule: RuleEnum, Known: []string{
				"amex", "diners", "discover", "jcb", "mastercard", "unionpay", "visa", "unknown",
			}},
			{Column: "funding", SourceKey: "funding", Rule: RuleEnum, Known: []string{
				"credit", "debit", "prepaid", "unknown",
			}},
			{Column: "last4", SourceKey: "last4", Rule: RuleString},
			{Column: "exp_month", SourceKey: "exp_month", Rule: RuleInt},
			{Column: "exp_year", SourceKey: "exp_year", Rule: RuleInt},
			{Column: "country", SourceKey: "country", Rule: RuleString},
		},
		Relations: []RelationSpec{
			{Column: "customer", SourceKey: "customer", TargetKind: "customer"},
		},
	}
}

func chargeDescriptor() *Descriptor {
	return &Descriptor{
		Kind:  "charge",
		Table: "charges",
		Fields: []FieldSpec{
			{Column: "amount", SourceKey: "amount", Rule: RuleInt},
			{Column: "amount_refunded", SourceKey: "amount_refunded", Rule: RuleInt},
			{Column: "currency", SourceKey: "currency", Rule: RuleString},
			{Column: "status", SourceKey: "status", Rule: RuleEnum, Known: []string{
				"succeeded", "pending", "failed",
			}},
			{Column: "paid", SourceKey: "paid", Rule: RuleBool},
			{Column: "refunded", SourceKey: "refunded", Rule: RuleBool},
			{Column: "description", SourceKey: "description", Rule: RuleString},
			{Column: "created", SourceKey: "created", Rule: RuleTimestamp},
			{Column: "metadata", SourceKey: "metadata", Rule: RuleJSON},
		},
		Relations: []RelationSpec{
			{Column: "customer", SourceKey: "customer", TargetKind: "customer"},
			{Column: "invoice", SourceKey: "invoice", TargetKind: "invoice"},
			{Column: "balance_transaction", SourceKey: "balance_transaction", TargetKind: "balance_transaction"},
		},
	}
}

func planDescriptor() *Descriptor {
	return &Descriptor{
		Kind:  "plan",
		Table: "plans",
		Fields: []FieldSpec{
			{Column: "amount", SourceKey: "amount", Rule: RuleInt},
			{Column: "currency", SourceKey: "currency", Rule: RuleString},
			{Column: "interval", SourceKey: "interval", Rule: RuleEnum, Known: []string{
				"day", "week", "month", "year",
			}},
			{Column: "interval_count", SourceKey: "interval_count", Rule: RuleInt},
			{Column: "nickname", SourceKey: "nickname", Rule: RuleString},
			{Column: "active", SourceKey: "active", Rule: RuleBool},
			{Column: "created", SourceKey: "created", Rule: RuleTimestamp},
		},
	}
}

func subscriptionDescriptor() *Descriptor {
	return &Descriptor{
		Kind:  "subscription",
		Table: "subscriptions",
		Fields: []FieldSpec{
			{Column: "status", SourceKey: "status", Rule: RuleEnum, Known: []string{
				"trialing", "active", "past_due", "canceled", "unpaid",
				"incomplete", "incomplete_expired",
			}},
			{Column: "quantity", SourceKey: "quantity", Rule: RuleInt},
			{Column: "cancel_at_period_end", SourceKey: "cancel_at_period_end", Rule: RuleBool},
			{Column: "current_period_start", SourceKey: "current_period_start", Rule: RuleTimestamp},
			{Column: "current_period_end", SourceKey: "current_period_end", Rule: RuleTimestamp},
			{Column: "created", SourceKey: "created", Rule: RuleTimestamp},
			{Column: "metadata", SourceKey: "metadata", Rule: RuleJSON},
		},
		Relations: []RelationSpec{
			{Column: "customer", SourceKey: "customer", TargetKind: "customer"},
			{Column: "plan", SourceKey: "plan", TargetKind: "plan"},
		},
	}
}

func invoiceDescriptor() *Descriptor {
	return &Descriptor{
		Kind:  "invoice",
		Table: "invoices",
		Fields: []FieldSpec{
			{Column: "number", SourceKey: "number", Rule: RuleString},
			{Column: "amount_due", SourceKey: "amount_due", Rule: RuleInt},
			{Column: "amount_paid", SourceKey: "amount_paid", Rule: RuleInt},
			{Column: "currency", SourceKey: "currency", Rule: RuleString},
			{Column: "status", SourceKey: "status", Rule: RuleEnum, Known: []string{
				"draft", "open", "paid", "uncollectible", "void",
			}},
			{Column: "paid", SourceKey: "paid", Rule: RuleBool},
			{Column: "period_start", SourceKey: "period_start", Rule: RuleTimestamp},
			{Column: "period_end", SourceKey: "period_end", Rule: RuleTimestamp},
			{Column: "created", SourceKey: "created", Rule: RuleTimestamp},
			{Column: "metadata", SourceKey: "metadata", Rule: RuleJSON},
		},
		Relations: []RelationSpec{
			{Column: "customer", SourceKey: "customer", TargetKind: "customer"},
			{Column: "charge", SourceKey: "charge", TargetKind: "charge"},
			{Column: "subscription", SourceKey: "subscription", TargetKind: "subscription"},
		},
	}
}

func balanceTransactionDescriptor() *Descriptor {
	// Settled financial transactions never change once created. They are
	// insert-only and a locally present copy is never re-fetched.
	return &Descriptor{
		Kind:       "balance_transaction",
		Table:      "balance_transactions",
		Immutable:  true,
		InsertOnly: true,
		Fields: []FieldSpec{
			{Column: "amount", SourceKey: "amount", Rule: RuleInt},
			{Column: "fee", SourceKey: "fee", Rule: RuleInt},
			{Column: "net", SourceKey: "net", Rule: RuleInt},
			{Column: "currency", SourceKey: "currency", Rule: RuleString},
			{Column: "status", SourceKey: "status", Rule: RuleEnum, Known: []string{
				"available", "pending",
			}},
			{Column: "type", SourceKey: "type", Rule: RuleString},
			{Column: "created", SourceKey: "created", Rule: RuleTimestamp},
			{Column: "available_on", SourceKey: "available_on", Rule: RuleTimestamp},
		},
	}
}

// NewBuiltinRegistry returns a registry populated with every mirrored kind.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(customerDescriptor())
	r.Register(cardDescriptor())
	r.Register(chargeDescriptor())
	r.Register(planDescriptor())
	r.Register(subscriptionDescriptor())
	r.Register(invoiceDescriptor())
	r.Register(balanceTransactionDescriptor())
	return r
}
