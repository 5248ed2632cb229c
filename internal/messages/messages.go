package messages

const IntroMessage = `Привет! Я распределяю игроков по кортам для парного бадминтона.

Учитываю, кто сколько играл, уровень (beginner / semi / advance), пол и то, с кем вы уже играли в паре или друг против друга.

/help — список команд.`

const HelpMessage = `Команды:
/add Имя [m|f] [beginner|semi|advance] — добавить игрока
/bulk [m|f] [уровень] — добавить список: имена на следующих строках
/remove ID — удалить игрока
/set ID gender|level|group|arrived значение — изменить игрока
/players — список игроков
/courts N — число кортов
/limits T O — лимит повторов партнёров (T) и соперников (O)
/override on|off — мягкое ослабление лимитов, если иначе не собрать корт
/round — следующий раунд
/preview — сколько кортов заполнит следующий раунд
/history [N] — последние раунды
/auto минуты|off — раунды по таймеру
/resettime HH:MM — время ежедневного сброса (UTC)
/newsession — новый вечер: сбросить раунды и историю, оставить игроков
/reset — удалить всё`

const (
	NextRoundButton  = "Следующий раунд"
	NoValidMatches   = "Не удалось собрать ни одного корта. Добавьте игроков, поменяйте уровни или включите /override."
	NotEnoughPlayers = "Нужно минимум 4 игрока."
	SoftOverrideUsed = "⚠️ лимиты повторов ослаблены"
	SessionReset     = "Новый вечер: раунды и история сброшены, игроки остались."
	FullReset        = "Всё удалено. Добавьте игроков заново."
	DailyReset       = "Доброе утро! Начинаем новый вечер: счётчики игр и история сброшены."
	UnknownCommand   = "Не знаю такой команды. /help"
	NoPlayers        = "Игроков пока нет. /add Имя"
	NoRounds         = "Раундов ещё не было."
	AutoOff          = "Автоматические раунды выключены."
	Saved            = "Готово."
	StaleButton      = "Этот раунд уже не последний."
)
