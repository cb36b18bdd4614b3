package history

// DefaultData returns the built-in content. Each call returns fresh maps.
func DefaultData() Data {
	return Data{
		Figures: []Figure{
			{Name: "Цицерон", Quote: "О времена, о нравы!", Era: "Древний Рим"},
			{Name: "Пётр I", Quote: "Все люди — лжецы и лицемеры.", Era: "Российская империя"},
			{Name: "Екатерина II", Quote: "Побольше действий, поменьше слов.", Era: "Российская империя"},
			{Name: "Наполеон", Quote: "Воображение правит миром.", Era: "Наполеоновские войны"},
			{Name: "Пушкин", Quote: "А счастье было так возможно...", Era: "Золотой век"},
			{Name: "Ленин", Quote: "Учиться, учиться и учиться.", Era: "СССР"},
			{Name: "Черчилль", Quote: "Успех — это движение от неудачи к неудаче.", Era: "XX век"},
		},
		Events: []string{
			"Цезарь перешёл Рубикон",
			"Наполеон отступил из России",
			"Гагарин полетел в космос",
			"Пушкин дописал 'Евгения Онегина'",
			"Суворов перешёл Альпы",
			"Толстой закончил 'Войну и мир'",
			"Был основан Санкт-Петербург",
			"Состоялась Бородинская битва",
		},
		Facts: []string{
			"В этот день в 1812 году началось Бородинское сражение",
			"Ровно 100 лет назад люди ещё не знали про интернет",
			"В XIX веке утренний кофе был настоящим ритуалом",
			"Первый телефонный звонок состоялся в 1876 году",
			"Древние римляне уже знали про центральное отопление",
		},
		Actions: []string{"торжествовал", "размышлял", "сражался", "творил"},
		Holidays: map[string]string{
			"01-01": "Новый год",
			"01-07": "Рождество",
			"01-14": "Старый Новый год",
			"01-25": "День студента",
			"02-23": "День защитника Отечества",
			"03-08": "Международный женский день",
			"05-01": "Праздник весны и труда",
			"05-09": "День Победы",
			"06-01": "День защиты детей",
			"06-12": "День России",
			"11-04": "День народного единства",
			"12-31": "Канун Нового года",
		},
		Anniversaries: map[string][]string{
			"01-15": {"Иван Грозный", "Арина Родионовна"},
			"02-08": {"Жюль Верн", "Дмитрий Менделеев"},
			"03-31": {"Рене Декарт"},
			"04-15": {"Леонардо да Винчи"},
			"05-24": {"Иосиф Бродский"},
			"06-06": {"Александр Пушкин"},
			"07-18": {"Уильям Теккерей"},
			"08-19": {"Билл Клинтон"},
			"09-08": {"Лев Толстой"},
			"10-31": {"Иоганн Кеплер"},
			"11-22": {"Шарль де Голль"},
			"12-05": {"Уолт Дисней"},
		},
	}
}
