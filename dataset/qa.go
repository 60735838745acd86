package dataset

import "strings"

type QAPair struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type RLHFItem struct {
	Context  string `json:"context"`
	Prompt   string `json:"prompt"`
	Chosen   string `json:"chosen"`
	Rejected string `json:"rejected"`
}

type SFTItem struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

const personalInfoTypes = "身分證號碼、銀行帳號、信用卡資料、密碼"

// 每种诈骗类型生成辨识、处理、警示迹象三组问答
func QAPairs(info FraudInfo) []QAPair {
	t := info.Type
	keywords := "高報酬, 急迫感, 保密要求"
	if n := len(info.AlertKeywords); n > 0 {
		if n > 5 {
			n = 5
		}
		keywords = strings.Join(info.AlertKeywords[:n], ", ")
	}

	return []QAPair{
		{
			Question:      "如何辨識" + t + "詐騙？",
			CorrectAnswer: "辨識" + t + "詐騙的方法：" + info.Description + "\n\n預防方法：" + info.Prevention,
			IncorrectAnswers: []string{
				t + "不是常見詐騙手法，不需要特別注意。",
				"只要對方提供身分證件照片，就能確定不是" + t + "詐騙。",
				"不用擔心，銀行會自動偵測並阻擋" + t + "詐騙。",
			},
		},
		{
			Question:      "遇到疑似" + t + "，應該如何處理？",
			CorrectAnswer: "應立即停止交流，不要提供個人資料或轉帳。可以撥打165反詐騙專線尋求協助，或向警方舉報。" + info.Prevention,
			IncorrectAnswers: []string{
				"可以先少量轉帳測試對方是否可靠。",
				"告訴對方你要查證，觀察他們的反應就能判斷真偽。",
				"向朋友借錢應急，之後再處理這個問題。",
			},
		},
		{
			Question:      t + "有哪些警示跡象？",
			CorrectAnswer: t + "的警示跡象包括：" + keywords + "等。詐騙者通常會" + info.Description,
			IncorrectAnswers: []string{
				"正規投資不會有任何警示跡象，只要看對方態度誠懇就沒問題。",
				"只要對方有提供公司地址和電話，就不太可能是詐騙。",
				"真正的詐騙會直接要求大筆金額，小額交易都是安全的。",
			},
		},
	}
}

// 投资邀约、紧急邮件、冒充防诈中心索要个资三个场景
func RLHFExamples(info FraudInfo) []RLHFItem {
	t := info.Type
	return []RLHFItem{
		{
			Context:  "有人透過社群媒體宣稱能幫助投資" + t + "，保證每月有20%的獲利。",
			Prompt:   "請問我該如何回應這樣的投資邀請？",
			Chosen:   "這很可能是" + t + "詐騙。正規投資不會「保證」固定回報，特別是20%這麼高的報酬率。建議您不要回應，並且封鎖該帳號。如需投資理財，請諮詢有合法執照的金融機構。",
			Rejected: "這聽起來是個不錯的投資機會！20%的月獲利雖然高，但如果是專業投資者應該有辦法達成。可以先投資小額試試，如果獲利順利再增加投資。",
		},
		{
			Context:  "您收到一封緊急郵件，聲稱是「" + t + "安全警報」，請您立即點擊連結更新您的帳戶資訊以避免帳戶被凍結。",
			Prompt:   "遇到這種情況該怎麼辦？",
			Chosen:   "這是典型的" + t + "詐騙手法。正規機構不會透過電子郵件要求您緊急更新帳戶資訊。請勿點擊任何連結，也不要提供任何個人資料。如有疑慮，請直接聯繫您的銀行或相關機構確認。",
			Rejected: "雖然看起來有點可疑，但為了安全起見，還是先點進去看看是什麼情況。如果真的要輸入資料，我會特別小心，只提供必要的資訊。",
		},
		{
			Context:  "一個自稱是" + t + "防詐中心的人打電話給您，聲稱您的帳戶有異常交易，需要您提供" + personalInfoTypes + "進行驗證。",
			Prompt:   "我應該提供我的個人資料嗎？",
			Chosen:   "請勿提供任何個人資料！正規金融機構或政府單位不會主動打電話要求您提供完整的" + personalInfoTypes + "。這很可能是詐騙。建議您掛斷電話，並直接撥打該機構的官方客服電話（請查詢官方網站上的電話號碼）進行確認。如有疑慮，也可以撥打165反詐騙專線諮詢。",
			Rejected: "如果對方能說出您的姓名和基本資料，應該是正規的防詐中心在進行例行檢查。為了保護您的帳戶安全，您可以提供" + personalInfoTypes + "進行驗證，這樣他們才能幫您解除風險。",
		},
	}
}
