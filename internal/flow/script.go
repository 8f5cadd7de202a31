package flow

// EntryStepID is the step every new session starts on.
const EntryStepID = "welcome"

// Field names shared between option captures and the session engine.
const (
	FieldInterest       = "interest"
	FieldSegment        = "segment"
	CaptureMarketingIn  = "marketing_opt_in"
	CaptureMarketingOut = "marketing_opt_out"
)

// Default returns the built-in lead-qualification script: a welcome fork into
// product browsing, a quick-question loop and a human-handoff shortcut, all
// converging on the qualification -> contact capture -> closing trunk.
func Default() *Graph {
	return MustGraph(EntryStepID, []Step{
		{
			ID:         "welcome",
			Stage:      1,
			BotMessage: "Olá! 👋 Seja bem-vindo(a) à {companyName}! Sou o assistente virtual e posso te ajudar a encontrar a solução ideal. O que você gostaria de fazer?",
			Options: []Option{
				{ID: "opt1", Label: "🛍️ Conhecer nossos produtos", NextStepID: "show_products", CaptureAs: "initial_choice"},
				{ID: "opt2", Label: "💬 Falar com um especialista", NextStepID: "human_handoff", CaptureAs: "initial_choice"},
				{ID: "opt3", Label: "❓ Tenho uma dúvida rápida", NextStepID: "quick_question", CaptureAs: "initial_choice"},
			},
		},
		{
			ID:         "show_products",
			Stage:      1,
			BotMessage: "Ótimo! Hoje trabalhamos com: {productList}. Quer saber mais sobre algum deles?",
			Options: []Option{
				{ID: "opt1", Label: "🔍 Quero saber mais sobre um produto", NextStepID: "interest_detail", CaptureAs: "browse_choice"},
				{ID: "opt2", Label: "💬 Falar com um especialista", NextStepID: "human_handoff"},
				{ID: "opt3", Label: "👋 Por enquanto é só", NextStepID: "closing"},
			},
		},
		{
			ID:         "interest_detail",
			Stage:      2,
			BotMessage: "Me conta: qual produto ou solução você está procurando?",
			Capture:    &CaptureInput{Type: CaptureText, Field: FieldInterest, NextStepID: "product_explanation"},
		},
		{
			ID:         "product_explanation",
			Stage:      3,
			BotMessage: "Excelente escolha! {interesse} é uma das nossas especialidades e podemos montar uma proposta sob medida. Como prefere seguir?",
			Options: []Option{
				{ID: "opt1", Label: "📋 Quero um orçamento", NextStepID: "qualification_segment"},
				{ID: "opt2", Label: "❓ Tenho uma dúvida", NextStepID: "quick_question"},
				{ID: "opt3", Label: "👋 Por agora é só", NextStepID: "closing"},
			},
		},
		{
			ID:         "quick_question",
			Stage:      2,
			BotMessage: "Claro! Escreve a sua dúvida aqui que eu registro para a nossa equipe.",
			Capture:    &CaptureInput{Type: CaptureText, Field: "question", NextStepID: "faq_response"},
		},
		{
			ID:         "faq_response",
			Stage:      2,
			BotMessage: "Boa pergunta! Nossa equipe responde dúvidas assim todos os dias e pode te retornar com uma resposta completa. O que prefere?",
			Options: []Option{
				{ID: "opt1", Label: "❓ Fazer outra pergunta", NextStepID: "quick_question"},
				{ID: "opt2", Label: "💬 Falar com um especialista", NextStepID: "human_handoff"},
				{ID: "opt3", Label: "📋 Quero um orçamento", NextStepID: "qualification_segment"},
			},
		},
		{
			ID:         "human_handoff",
			Stage:      4,
			BotMessage: "Perfeito! Vou encaminhar você para a nossa equipe. Para agilizar o atendimento, qual é o seu nome?",
			Capture:    &CaptureInput{Type: CaptureName, Field: "name", NextStepID: "capture_phone"},
		},
		{
			ID:         "qualification_segment",
			Stage:      4,
			BotMessage: "Para preparar a proposta ideal, o uso seria em qual tipo de ambiente?",
			Options: []Option{
				{ID: "opt1", Label: "🏠 Residencial", NextStepID: "capture_name", CaptureAs: FieldSegment},
				{ID: "opt2", Label: "🏢 Escritório", NextStepID: "capture_name", CaptureAs: FieldSegment},
				{ID: "opt3", Label: "🏭 Indústria ou comércio", NextStepID: "capture_name", CaptureAs: FieldSegment},
			},
		},
		{
			ID:         "capture_name",
			Stage:      5,
			BotMessage: "Combinado! Qual é o seu nome?",
			Capture:    &CaptureInput{Type: CaptureName, Field: "name", NextStepID: "capture_phone"},
		},
		{
			ID:         "capture_phone",
			Stage:      5,
			BotMessage: "Prazer, {nome}! 😊 Qual é o seu WhatsApp com DDD?",
			Capture:    &CaptureInput{Type: CapturePhone, Field: "phone", NextStepID: "capture_email"},
		},
		{
			ID:         "capture_email",
			Stage:      6,
			BotMessage: "Anotado! E qual é o seu e-mail?",
			Capture:    &CaptureInput{Type: CaptureEmail, Field: "email", NextStepID: "marketing_consent"},
		},
		{
			ID:         "marketing_consent",
			Stage:      7,
			BotMessage: "Para finalizar: podemos te avisar sobre novidades e promoções da {companyName}?",
			Options: []Option{
				{ID: "opt1", Label: "✅ Sim, pode me avisar", NextStepID: "closing_with_lead", CaptureAs: CaptureMarketingIn},
				{ID: "opt2", Label: "❌ Não, obrigado", NextStepID: "closing_with_lead", CaptureAs: CaptureMarketingOut},
			},
			Actions: []Action{
				{Type: ActionIncrementScore, Points: 20},
				{Type: ActionSetQualified, Qualified: true},
				{Type: ActionCreateLead},
				{Type: ActionSendNotification},
			},
		},
		{
			ID:         "closing_with_lead",
			Stage:      8,
			BotMessage: "Perfeito, {nome}! 🎉 Recebemos seus dados e nossa equipe entra em contato pelo {capturedPhone} em breve. Obrigado por conversar com a {companyName}!",
		},
		{
			ID:         "closing",
			Stage:      8,
			BotMessage: "Obrigado pela visita! Você também pode nos encontrar em {companyAddress} ou ligar para {companyPhone}. Se precisar, é só chamar de novo. 👋",
		},
	})
}
