package email

const (
	subjectRequestReceivedFmt = "Votre demande %s est enregistrée"
	subjectStatusUpdateFmt    = "Mise à jour de votre demande %s"
	subjectSearchDelayedFmt   = "Recherche en cours pour votre demande %s"
)
